// Package stubapi serves the admin REST contract over a stubstore database.
// It backs the integration tests and the stubserver command.
package stubapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/internal/stubstore"
	"github.com/goliatone/go-listsync/mutation"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/query"
)

const maxBodyBytes = 1 << 20

// Store is the persistence used by the server.
type Store interface {
	List(ctx context.Context, resource string, params stubstore.ListParams) (stubstore.ListResult, error)
	Create(ctx context.Context, resource string, raw []byte) (json.RawMessage, error)
	Update(ctx context.Context, resource, id string, raw []byte) (json.RawMessage, error)
	Delete(ctx context.Context, resource, id string) error
	Reorder(ctx context.Context, resource string, order []string) error
}

type messageResponse struct {
	Message  string          `json:"message"`
	TextCode string          `json:"textCode,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Server exposes Store over HTTP.
type Server struct {
	store  Store
	auth   *Authenticator
	faults *Faults
	logger cache.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator requires a bearer token on every resource route.
func WithAuthenticator(a *Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithFaults shares a fault table with the caller.
func WithFaults(f *Faults) Option {
	return func(s *Server) {
		if f != nil {
			s.faults = f
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l cache.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a Server over store.
func NewServer(store Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		faults: NewFaults(),
		logger: cache.NopLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Faults returns the server fault table.
func (s *Server) Faults() *Faults {
	return s.faults
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	resources := http.NewServeMux()
	resources.HandleFunc("GET /{resource}", s.handleList)
	resources.HandleFunc("POST /{resource}", s.handleCreate)
	resources.HandleFunc("PUT /{resource}/reorder", s.handleReorder)
	resources.HandleFunc("PUT /{resource}/{id}", s.handleUpdate)
	resources.HandleFunc("DELETE /{resource}/{id}", s.handleDelete)

	var protected http.Handler = resources
	if s.auth != nil {
		protected = s.auth.Middleware(resources)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("/", protected)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if err := s.faults.check(ActionList, resource); err != nil {
		s.fail(w, r, err)
		return
	}

	values := r.URL.Query()
	params := stubstore.ListParams{
		SortBy: values.Get(query.SortField),
		Search: values.Get(query.SearchField),
		Cursor: values.Get(query.CursorField),
	}
	if raw := values.Get(query.LimitField); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.fail(w, r, goerrors.New("limit must be a non-negative integer", goerrors.CategoryBadInput).
				WithTextCode("INVALID_LIMIT"))
			return
		}
		params.Limit = limit
	}

	result, err := s.store.List(r.Context(), resource, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagination.Page[json.RawMessage]{
		Items:      result.Items,
		NextCursor: result.NextCursor,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if err := s.faults.check(ActionCreate, resource); err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := readBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := s.store.Create(r.Context(), resource, raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Created successfully", Data: body})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if err := s.faults.check(ActionUpdate, resource); err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := readBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := s.store.Update(r.Context(), resource, r.PathValue("id"), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Updated successfully", Data: body})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if err := s.faults.check(ActionDelete, resource); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), resource, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted successfully"})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if err := s.faults.check(ActionReorder, resource); err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := readBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var payload mutation.ReorderPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SlideOrder == nil {
		s.fail(w, r, goerrors.New("slideOrder is required", goerrors.CategoryBadInput).
			WithTextCode("MALFORMED_BODY"))
		return
	}
	if err := s.store.Reorder(r.Context(), resource, payload.SlideOrder); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Order saved"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := writeError(w, err)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("stubapi: %s %s request_id=%s: %v", r.Method, r.URL.Path, r.Header.Get("X-Request-ID"), err)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "read request body").
			WithTextCode("MALFORMED_BODY")
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err as a {"message": ...} document and returns the
// status used.
func writeError(w http.ResponseWriter, err error) int {
	gerr := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	status := gerr.Code
	if status == 0 {
		status = categoryStatus(gerr.Category)
	}
	message := gerr.Message
	if status >= http.StatusInternalServerError {
		message = mutation.DefaultErrorMessage
	}
	writeJSON(w, status, messageResponse{Message: message, TextCode: gerr.TextCode})
	return status
}

func categoryStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
