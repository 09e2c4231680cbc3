package registry

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/platform-mesh/golang-commons/logger"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/common/watcher"
	"github.com/platform-mesh/graphql-validation/gateway/resolver"
	"github.com/platform-mesh/graphql-validation/gateway/schema"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/lifecycle"
	"github.com/platform-mesh/graphql-validation/validation/policy"
)

var _ watcher.FileEventHandler = (*Registry)(nil)

// Paths locates the inputs of a generation.
type Paths struct {
	Schema string
	Policy string
	Data   string
}

// Registry rebuilds the executable schema and its validators whenever an input file changes.
type Registry struct {
	log         *logger.Logger
	paths       Paths
	catalog     *function.Catalog
	coordinator *lifecycle.Coordinator

	mu sync.Mutex
}

func New(log *logger.Logger, paths Paths, catalog *function.Catalog, coordinator *lifecycle.Coordinator) *Registry {
	if catalog == nil {
		catalog = function.NewCatalog()
	}
	return &Registry{
		log:         log,
		paths:       paths,
		catalog:     catalog,
		coordinator: coordinator,
	}
}

// Load reads every input and publishes a new generation. On failure the current generation stays.
func (r *Registry) Load(ctx context.Context) (*lifecycle.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sdl, err := LoadSDL(r.paths.Schema)
	if err != nil {
		return nil, err
	}

	p := policy.New()
	if r.paths.Policy != "" {
		if p, err = policy.Load(r.paths.Policy, r.catalog); err != nil {
			return nil, err
		}
	}

	data, err := resolver.LoadData(r.paths.Data)
	if err != nil {
		return nil, err
	}

	exec, err := schema.New(r.log, resolver.New(r.log, data)).Build(sdl)
	if err != nil {
		return nil, err
	}

	return r.coordinator.Reload(ctx, p, sdl, exec)
}

// Schema returns the executable schema of the current generation.
func (r *Registry) Schema() *graphql.Schema {
	if gen := r.coordinator.Current(); gen != nil {
		return gen.Schema
	}
	return nil
}

// Ready reports whether a generation has been published.
func (r *Registry) Ready() bool {
	return r.coordinator.Current() != nil
}

// OnFileChanged implements watcher.FileEventHandler.
func (r *Registry) OnFileChanged(path string) {
	r.reload(path, "changed")
}

// OnFileDeleted implements watcher.FileEventHandler.
func (r *Registry) OnFileDeleted(path string) {
	r.reload(path, "deleted")
}

func (r *Registry) reload(path, event string) {
	log, err := r.log.ChildLoggerWithAttributes("file", path, "event", event)
	if err != nil {
		log = r.log
	}
	gen, err := r.Load(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("failed to reload schema, keeping the current generation")
		return
	}
	log.Info().Uint64("generation", gen.Number).Msg("schema reloaded")
}

// LoadSDL parses a .graphql file, or every .graphql and .gql file of a directory in name order.
func LoadSDL(path string) (*ast.Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat schema path %s", path)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read schema directory %s", path)
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".graphql" || ext == ".gql") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		slices.Sort(files)
		if len(files) == 0 {
			return nil, errors.Errorf("no schema files found in %s", path)
		}
	}

	sources := make([]*ast.Source, 0, len(files))
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read schema file %s", f)
		}
		sources = append(sources, &ast.Source{Name: f, Input: string(raw)})
	}

	sdl, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse schema")
	}
	return sdl, nil
}
