package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
)

const (
	codeValidation       = "VALIDATION_ERROR"
	codeNotAuthenticated = "NOT_AUTHENTICATED"
	codeInternal         = "INTERNAL_ERROR"

	detailValidation       = "Request validation failed"
	detailNotAuthenticated = "Not authenticated"
	detailInternal         = "Internal server error"
)

type errorBody struct {
	Detail    string            `json:"detail"`
	ErrorCode string            `json:"error_code"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type kindStatus struct {
	kind   error
	status int
	code   string
}

// kindStatuses is checked in order; the first kind err matches wins.
var kindStatuses = []kindStatus{
	{common.ErrValidation, http.StatusUnprocessableEntity, codeValidation},
	{common.ErrConflict, http.StatusBadRequest, "CONFLICT"},
	{common.ErrCredentials, http.StatusBadRequest, "INVALID_CREDENTIALS"},
	{common.ErrToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{common.ErrSessionState, http.StatusUnauthorized, "SESSION_INVALID"},
	{common.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{common.ErrBusinessRule, http.StatusBadRequest, "BUSINESS_RULE_VIOLATION"},
	{common.ErrUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{common.ErrStorage, http.StatusInternalServerError, "STORAGE_ERROR"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{
		Detail:    detailValidation,
		ErrorCode: codeValidation,
		Errors:    fields,
	})
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", common.BearerScheme)
	writeJSON(w, http.StatusUnauthorized, errorBody{Detail: detailNotAuthenticated, ErrorCode: codeNotAuthenticated})
}

// errorResponse maps a service error to its status and body. Storage and
// unclassified failures never expose their message, except for the session
// establishment error which is meant for clients.
func errorResponse(err error) (int, errorBody) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		field := verr.Field
		if field == "" {
			field = "body"
		}
		return http.StatusUnprocessableEntity, errorBody{
			Detail:    verr.Message,
			ErrorCode: codeValidation,
			Errors:    map[string]string{field: verr.Message},
		}
	}

	for _, ks := range kindStatuses {
		if !errors.Is(err, ks.kind) {
			continue
		}
		detail := err.Error()
		if ks.kind == common.ErrStorage && !errors.Is(err, common.ErrSessionEstablishmentFailed) {
			detail = detailInternal
		}
		return ks.status, errorBody{Detail: detail, ErrorCode: ks.code}
	}

	return http.StatusInternalServerError, errorBody{Detail: detailInternal, ErrorCode: codeInternal}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		a.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", common.BearerScheme)
	}
	writeJSON(w, status, body)
}
