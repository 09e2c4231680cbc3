package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	gqlhandler "github.com/graphql-go/handler"
	"github.com/platform-mesh/golang-commons/logger"

	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// SchemaSource hands out the schema of the current generation, or nil before the first one.
type SchemaSource interface {
	Schema() *graphql.Schema
}

type Config struct {
	Pretty     bool
	Playground bool
	GraphiQL   bool
}

// Handler executes GraphQL requests against whatever schema is current when the request arrives.
type Handler struct {
	log    *logger.Logger
	source SchemaSource
	cfg    Config
}

func New(log *logger.Logger, source SchemaSource, cfg Config) *Handler {
	return &Handler{log: log, source: source, cfg: cfg}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	schema := h.source.Schema()
	if schema == nil {
		h.write(w, http.StatusServiceUnavailable, &graphql.Result{
			Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError("schema is not loaded yet")},
		})
		return
	}

	if r.Method == http.MethodGet && (h.cfg.GraphiQL || h.cfg.Playground) && strings.Contains(r.Header.Get("Accept"), "text/html") {
		gqlhandler.New(&gqlhandler.Config{
			Schema:     schema,
			Pretty:     h.cfg.Pretty,
			Playground: h.cfg.Playground,
			GraphiQL:   h.cfg.GraphiQL,
		}).ServeHTTP(w, r)
		return
	}

	opts := gqlhandler.NewRequestOptions(r)
	result := graphql.Do(graphql.Params{
		Schema:         *schema,
		RequestString:  opts.Query,
		VariableValues: opts.Variables,
		OperationName:  opts.OperationName,
		Context:        r.Context(),
	})

	status := StatusFor(result)
	if status != http.StatusOK {
		h.log.Debug().Int("status", status).Int("errors", len(result.Errors)).Msg("request failed validation")
	}
	h.write(w, status, result)
}

// StatusFor is 400 when no data was produced and an argument failed validation, 200 otherwise.
func StatusFor(result *graphql.Result) int {
	if !isNull(result.Data) {
		return http.StatusOK
	}
	for _, e := range result.Errors {
		if e.Extensions != nil && e.Extensions["code"] == verrors.CodeFailedValidation {
			return http.StatusBadRequest
		}
	}
	return http.StatusOK
}

func isNull(data interface{}) bool {
	if data == nil {
		return true
	}
	m, ok := data.(map[string]interface{})
	return ok && m == nil
}

func (h *Handler) write(w http.ResponseWriter, status int, result *graphql.Result) {
	var (
		buf []byte
		err error
	)
	if h.cfg.Pretty {
		buf, err = json.MarshalIndent(result, "", "\t")
	} else {
		buf, err = json.Marshal(result)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode GraphQL result")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf); err != nil {
		h.log.Error().Err(err).Msg("failed to write response")
	}
}
