package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"todoapi/pkg/todo"
	"todoapi/pkg/version"
)

// maxBodyBytes caps request bodies well above any valid item payload.
const maxBodyBytes = 1 << 20

// Options tunes the transport boundary without touching the store.
type Options struct {
	// AllowedOrigins lists CORS origins; empty means allow any origin.
	AllowedOrigins []string
}

// Server translates HTTP requests into todo service calls and store
// failures back into status codes.
type Server struct {
	service   *todo.Service
	validator *requestValidator
	logger    *slog.Logger
	opts      Options
}

// New compiles the embedded request schemas once so handlers only pay for
// validation, mirroring how templates are parsed up front.
func New(service *todo.Service, logger *slog.Logger, opts Options) (*Server, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		// Handlers always log, so a nil logger falls back to stderr text output.
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Server{
		service:   service,
		validator: validator,
		logger:    logger,
		opts:      opts,
	}, nil
}

// Handler exposes the mux wrapped in logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/items", s.createItem)
	mux.HandleFunc("GET /api/items", s.listItems)
	mux.HandleFunc("GET /api/items/search", s.searchItems)
	mux.HandleFunc("GET /api/items/stats", s.itemStats)
	mux.HandleFunc("GET /api/items/{id}", s.getItem)
	mux.HandleFunc("PUT /api/items/{id}", s.replaceItem)
	mux.HandleFunc("PATCH /api/items/{id}", s.patchItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.deleteItem)
	return withLogging(s.logger, withCORS(s.opts.AllowedOrigins, mux))
}

// root greets API explorers so hitting the bare host is not a 404.
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "todo API",
		"health":  "/health",
		"items":   "/api/items",
	})
}

// health reports process liveness independent of store state.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Version(),
	})
}

// createItem validates the payload shape, then lets the store apply its
// semantic rules before answering 201 with the stored representation.
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var fields todo.Fields
	if !s.decodeBody(w, r, s.validator.create, &fields) {
		return
	}
	item, err := s.service.Create(r.Context(), fields)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.logger.Info("item created", "id", item.ID)
	s.respondJSON(w, http.StatusCreated, item)
}

// getItem fetches one item; a malformed identifier is a validation failure,
// never a not-found.
func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

// listItems serves pagination and the optional completion filter.
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := todo.ListQuery{}
	params := r.URL.Query()

	if raw := params.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			s.respondInvalidParam(w, "skip", "must be an integer")
			return
		}
		q.Skip = skip
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.respondInvalidParam(w, "limit", "must be an integer")
			return
		}
		q.Limit = &limit
	}
	if raw := params.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondInvalidParam(w, "completed", "must be true or false")
			return
		}
		q.Completed = &completed
	}

	items, err := s.service.List(r.Context(), q)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

// searchItems matches the query text against titles and descriptions.
// The q parameter is required and must not be blank.
func (s *Server) searchItems(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		s.respondInvalidParam(w, "q", "must not be empty")
		return
	}
	items, err := s.service.Search(r.Context(), text)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

// itemStats returns live aggregate counts.
func (s *Server) itemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// replaceItem swaps every mutable field of the addressed item.
func (s *Server) replaceItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var fields todo.Fields
	if !s.decodeBody(w, r, s.validator.replace, &fields) {
		return
	}
	item, err := s.service.Replace(r.Context(), id, fields)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.logger.Info("item replaced", "id", item.ID)
	s.respondJSON(w, http.StatusOK, item)
}

// patchItem changes only the supplied fields; omitted members stay untouched.
func (s *Server) patchItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var patch todo.Patch
	if !s.decodeBody(w, r, s.validator.patch, &patch) {
		return
	}
	item, err := s.service.Patch(r.Context(), id, patch)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.logger.Info("item patched", "id", item.ID)
	s.respondJSON(w, http.StatusOK, item)
}

// deleteItem removes the item and answers an empty 204.
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.logger.Info("item deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment, rejecting malformed identifiers as
// validation failures before the store is consulted.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondInvalidParam(w, "id", "must be a valid UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

// decodeBody enforces the structural contract: well-formed JSON matching the
// endpoint's schema. Semantic rules stay in the store.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, schema bodySchema, dst any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidationFailed, "unable to read request body", nil)
		return false
	}
	if fields, err := schema.check(raw); err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidationFailed, err.Error(), fields)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidationFailed, "request body does not match the expected shape", nil)
		return false
	}
	return true
}

// respondStoreError is the single translator from store failures to
// user-visible statuses.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid todo.InvalidArgumentError
	switch {
	case todo.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, codeNotFound, err.Error(), nil)
	case errors.As(err, &invalid):
		s.respondError(w, http.StatusBadRequest, codeInvalidArgument, err.Error(), []FieldError{
			{Field: invalid.Field, Reason: invalid.Reason},
		})
	default:
		s.logger.Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal error", nil)
	}
}

// respondInvalidParam reports a malformed query or path parameter.
func (s *Server) respondInvalidParam(w http.ResponseWriter, field, reason string) {
	s.respondError(w, http.StatusBadRequest, codeInvalidArgument, "invalid "+field+": "+reason, []FieldError{
		{Field: field, Reason: reason},
	})
}

// respondJSON keeps response formatting consistent across endpoints.
func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

// Error body codes shared by every failure response.
const (
	codeNotFound         = "not_found"
	codeInvalidArgument  = "invalid_argument"
	codeValidationFailed = "validation_failed"
	codeInternal         = "internal"
)

// FieldError pinpoints the offending member of a rejected request.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type errorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// respondError writes the standardized error envelope.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, fields []FieldError) {
	s.respondJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}
