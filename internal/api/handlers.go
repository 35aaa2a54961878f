package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/tabledef/internal/config"
	"github.com/JonMunkholm/tabledef/internal/definitions"
	"github.com/JonMunkholm/tabledef/internal/shorthand"
	"github.com/JonMunkholm/tabledef/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service     *definitions.Service
	webFS       fs.FS
	csrf        *CSRFMiddleware
	rateLimiter *RateLimiter
}

// NewHandler creates a new API handler. webFS holds the static form and may
// be nil.
func NewHandler(service *definitions.Service, webFS fs.FS, cfg *config.Config) (*Handler, error) {
	csrf, err := NewCSRFMiddleware()
	if err != nil {
		return nil, fmt.Errorf("failed to create CSRF middleware: %w", err)
	}

	return &Handler{
		service:     service,
		webFS:       webFS,
		csrf:        csrf,
		rateLimiter: NewRateLimiter(cfg.RateLimit, time.Minute),
	}, nil
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// CSRF token endpoint (must be outside CSRF middleware)
	mux.HandleFunc("GET /api/csrf-token", h.handleGetCSRFToken)
	mux.HandleFunc("GET /api/healthcheck", h.handleHealthcheck)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/types", h.handleGetTypes)
	apiMux.HandleFunc("POST /api/preview", h.handlePreview)
	apiMux.HandleFunc("GET /api/definitions", h.handleListDefinitions)
	apiMux.HandleFunc("POST /api/definitions", h.handleCreateDefinition)
	apiMux.HandleFunc("GET /api/definitions/{id}", h.handleGetDefinition)
	apiMux.HandleFunc("PATCH /api/definitions/{id}", h.handleUpdateDefinition)
	apiMux.HandleFunc("DELETE /api/definitions/{id}", h.handleDeleteDefinition)

	// Apply middleware chain: body limit -> rate limiting -> CSRF
	// 1MB limit for API request bodies
	protected := LimitBodySize(h.rateLimiter.Wrap(h.csrf.Wrap(apiMux)), 1<<20)
	mux.Handle("/api/", protected)

	if h.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(h.webFS)))
	}
}

// Stop stops background goroutines. Should be called on graceful shutdown.
func (h *Handler) Stop() {
	h.csrf.Stop()
	h.rateLimiter.Stop()
}

type csrfTokenData struct {
	Token string `json:"token"`
}

func (h *Handler) handleGetCSRFToken(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, csrfTokenData{Token: h.csrf.Token()})
}

func (h *Handler) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.service.Healthcheck())
}

// API Response types for consistent format
type apiResponse[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for API responses
const (
	ErrInvalidRequest   = "INVALID_REQUEST"
	ErrMissingField     = "MISSING_FIELD"
	ErrInvalidID        = "INVALID_ID"
	ErrUnknownType      = "UNKNOWN_TYPE"
	ErrMalformedSegment = "MALFORMED_SEGMENT"
	ErrEmptyDefinition  = "EMPTY_DEFINITION"
	ErrNotFound         = "NOT_FOUND"
	ErrStoreError       = "STORE_ERROR"
)

// respondJSON sends a successful JSON response with type-safe data
func respondJSON[T any](w http.ResponseWriter, data T) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	resp := apiResponse[T]{Success: true, Data: data}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// errorResponse is the response type for errors (no data field)
type errorResponse struct {
	Success bool      `json:"success"`
	Error   *apiError `json:"error,omitempty"`
}

// respondError sends an error JSON response (logs details server-side, sends safe message to client)
func (h *Handler) respondError(w http.ResponseWriter, code string, clientMessage string, status int, internalErr error) {
	// Log full error details server-side
	if internalErr != nil {
		log.Printf("[%s] %s: %v", code, clientMessage, internalErr)
	} else {
		log.Printf("[%s] %s", code, clientMessage)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	resp := errorResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: clientMessage},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// respondServiceError maps service errors to API errors. Compilation and
// validation failures are the caller's fault and carry their message to the
// client; anything else is a store failure.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *definitions.ValidationError
	if errors.As(err, &verr) {
		code := ErrMissingField
		if verr.Field == "grammar" {
			code = ErrInvalidRequest
		}
		h.respondError(w, code, verr.Error(), http.StatusBadRequest, nil)
		return
	}

	var cerr *shorthand.Error
	if errors.As(err, &cerr) {
		code := ErrMalformedSegment
		switch {
		case errors.Is(cerr, shorthand.ErrUnknownType):
			code = ErrUnknownType
		case errors.Is(cerr, shorthand.ErrEmptyDefinition):
			code = ErrEmptyDefinition
		}
		h.respondError(w, code, cerr.Error(), http.StatusUnprocessableEntity, nil)
		return
	}
	if errors.Is(err, shorthand.ErrTableName) {
		h.respondError(w, ErrMissingField, "Table name is required", http.StatusBadRequest, nil)
		return
	}

	h.respondError(w, ErrStoreError, "Failed to access table definitions", http.StatusInternalServerError, err)
}

func (h *Handler) respondNotFound(w http.ResponseWriter, id int64) {
	h.respondError(w, ErrNotFound, fmt.Sprintf("Table definition %d not found", id), http.StatusNotFound, nil)
}

// decodeJSONBody decodes JSON request body into the provided value.
// Returns false if decoding fails (error response already sent).
func (h *Handler) decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, ErrInvalidRequest, "Invalid request body", http.StatusBadRequest, err)
		return false
	}
	return true
}

// pathID parses the {id} path value.
// Returns false if parsing fails (error response already sent).
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, ErrInvalidID, "Invalid table definition id", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

type typesData struct {
	Types []shorthand.TypeInfo `json:"types"`
}

func (h *Handler) handleGetTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, typesData{Types: shorthand.TypeCodes()})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req definitions.PreviewInput
	if !h.decodeJSONBody(w, r, &req) {
		return
	}

	res, err := h.service.Preview(req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, res)
}

type definitionsData struct {
	Definitions []store.TableDefinition `json:"definitions"`
}

func (h *Handler) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.List(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, definitionsData{Definitions: defs})
}

func (h *Handler) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitions.CreateInput
	if !h.decodeJSONBody(w, r, &req) {
		return
	}

	def, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	log.Printf("[INFO] Created table definition %d (%s)", def.ID, def.Name)
	respondJSONStatus(w, http.StatusCreated, def)
}

func (h *Handler) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	def, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if def == nil {
		h.respondNotFound(w, id)
		return
	}
	respondJSON(w, def)
}

type updateRequest struct {
	Name                *string `json:"name"`
	ShorthandDefinition *string `json:"shorthand_definition"`
	Grammar             string  `json:"grammar"`
}

func (h *Handler) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if !h.decodeJSONBody(w, r, &req) {
		return
	}

	def, err := h.service.Update(r.Context(), definitions.UpdateInput{
		ID:                  id,
		Name:                req.Name,
		ShorthandDefinition: req.ShorthandDefinition,
		Grammar:             req.Grammar,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if def == nil {
		h.respondNotFound(w, id)
		return
	}
	respondJSON(w, def)
}

func (h *Handler) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	def, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if def == nil {
		h.respondNotFound(w, id)
		return
	}
	log.Printf("[INFO] Deleted table definition %d (%s)", def.ID, def.Name)
	respondJSON(w, def)
}
