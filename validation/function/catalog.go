package function

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
)

// Catalog holds named validators that file-based policies refer to with $function.
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewCatalog returns a catalog preloaded with the builtin validators.
func NewCatalog() *Catalog {
	c := &Catalog{funcs: map[string]Func{}}
	c.Register("notBlank", NotBlank)
	c.Register("noWhitespace", NoWhitespace)
	c.Register("uuid", UUID)
	return c
}

// Register adds or replaces a named validator.
func (c *Catalog) Register(name string, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
}

// Get looks up a named validator.
func (c *Catalog) Get(name string) (Func, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[name]
	return fn, ok
}

// NotBlank rejects strings made only of whitespace.
func NotBlank(_ context.Context, meta Metadata, value any, _ graphql.ResolveParams) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return Fail("must not be blank", map[string]any{
			"argument": meta.Argument,
			"message":  "must not be blank",
		})
	}
	return nil
}

// NoWhitespace rejects strings containing any whitespace.
func NoWhitespace(_ context.Context, meta Metadata, value any, _ graphql.ResolveParams) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return Fail("must not contain whitespace", map[string]any{
			"argument": meta.Argument,
			"message":  "must not contain whitespace",
		})
	}
	return nil
}

// UUID requires a textual UUID.
func UUID(_ context.Context, meta Metadata, value any, _ graphql.ResolveParams) error {
	s, ok := value.(string)
	if !ok {
		return Fail("must be a string", map[string]any{"argument": meta.Argument, "message": "must be a string"})
	}
	if _, err := uuid.Parse(s); err != nil {
		return Fail(fmt.Sprintf("must be a UUID: %s", err), map[string]any{
			"argument": meta.Argument,
			"message":  "must be a UUID",
		})
	}
	return nil
}
