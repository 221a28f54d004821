package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// Identity headers set by the upstream identity collaborator
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response body")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP status codes
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		status = http.StatusConflict
	case apperrors.ErrorTypeForbidden:
		status = http.StatusForbidden
	case apperrors.ErrorTypeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrorTypeTransient:
		status = http.StatusServiceUnavailable
	case apperrors.ErrorTypeExternal:
		status = http.StatusBadGateway
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondWithError(w, status, message)
}

// callerFrom reads the verified caller identity from the request headers
func callerFrom(r *http.Request) (entities.Identity, error) {
	caller := entities.Identity{
		ID:    r.Header.Get(HeaderUserID),
		Email: r.Header.Get(HeaderUserEmail),
		Role:  entities.Role(r.Header.Get(HeaderUserRole)),
	}
	if caller.ID == "" || caller.Role == "" {
		return entities.Identity{}, apperrors.NewUnauthorizedError("caller identity is required")
	}
	switch caller.Role {
	case entities.RoleSuperAdmin, entities.RoleAdmin, entities.RoleProvider, entities.RoleRequester:
	default:
		return entities.Identity{}, apperrors.NewUnauthorizedError(fmt.Sprintf("unknown role %q", caller.Role))
	}
	return caller, nil
}

// requireAdmin resolves the caller and rejects non-administrators
func requireAdmin(r *http.Request) (entities.Identity, error) {
	caller, err := callerFrom(r)
	if err != nil {
		return caller, err
	}
	if !caller.IsAdmin() {
		return caller, apperrors.NewForbiddenError("administrator role required")
	}
	return caller, nil
}

// requireProviderOrAdmin allows admins and the provider named in the path
func requireProviderOrAdmin(r *http.Request, providerID string) (entities.Identity, error) {
	caller, err := callerFrom(r)
	if err != nil {
		return caller, err
	}
	if caller.IsAdmin() || (caller.Role == entities.RoleProvider && caller.ID == providerID) {
		return caller, nil
	}
	return caller, apperrors.NewForbiddenError("only the provider or an administrator may do this")
}

func parsePage(r *http.Request) (repositories.Page, error) {
	q := r.URL.Query()
	page := repositories.Page{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	var err error
	if page.Page, err = parseInt(q.Get("page")); err != nil {
		return page, apperrors.NewValidationError("page must be a number")
	}
	if page.Limit, err = parseInt(q.Get("limit")); err != nil {
		return page, apperrors.NewValidationError("limit must be a number")
	}
	return page, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseTime accepts RFC 3339 timestamps
func parseTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be an RFC 3339 timestamp", key))
	}
	t = t.UTC()
	return &t, nil
}

func parseBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be true or false", key))
	}
	return &b, nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}
