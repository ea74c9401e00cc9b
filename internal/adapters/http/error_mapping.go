package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// Order matters: the first kind found in the chain wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidLineItem, http.StatusBadRequest, "invalid_line_item"},
	{domain.ErrInvalidConfiguration, http.StatusBadRequest, "invalid_configuration"},
	{domain.ErrMissingRequiredField, http.StatusBadRequest, "missing_required_field"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrTokenNotFound, http.StatusNotFound, "token_not_found"},
	{domain.ErrDocumentNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrAlreadyAccepted, http.StatusConflict, "already_accepted"},
	{domain.ErrTokenAlreadyConsumed, http.StatusConflict, "token_already_consumed"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{domain.ErrExpiredDocument, http.StatusGone, "expired_document"},
	{domain.ErrTokenExpired, http.StatusGone, "token_expired"},
	{domain.ErrTemporary, http.StatusServiceUnavailable, "temporarily_unavailable"},
}

func mapErrorToHTTPStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
