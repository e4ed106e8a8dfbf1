package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corvid-labs/fuda/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error errDetail `json:"error"`
}

type errDetail struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

func errorBody(code apperr.Code, msg string) errResponse {
	return errResponse{Error: errDetail{Code: string(code), Message: msg}}
}

// writeError maps an application error code to an HTTP status and writes
// the structured error body. Unknown errors surface as 500 IO_ERROR.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := httpStatus(code)
	body := errResponse{Error: errDetail{Code: string(code), Message: err.Error()}}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Error.Message = appErr.Message
		body.Error.Candidates = appErr.Candidates
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", slog.String("code", string(code)), slog.String("error", err.Error()))
	}
	writeJSON(w, status, body)
}

func httpStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeArticleNotFound, apperr.CodeTemplateNotFound,
		apperr.CodeScopeNotFound, apperr.CodeVaultNotFound:
		return http.StatusNotFound
	case apperr.CodeAmbiguousSlug, apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodeValidationError, apperr.CodeInvalidFrontmatter:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
