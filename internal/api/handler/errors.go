package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
)

type ErrorCode string

const (
	CodeApplicationExists ErrorCode = "APPLICATION_EXISTS"
	CodeDeploymentExists  ErrorCode = "DEPLOYMENT_EXISTS"
	CodeStatusOverridden  ErrorCode = "STATUS_OVERRIDDEN"
	CodeBeforeAuditStart  ErrorCode = "BEFORE_AUDIT_START"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeHistoryGone       ErrorCode = "HISTORY_UNAVAILABLE"
	CodeUpstreamDown      ErrorCode = "UPSTREAM_UNAVAILABLE"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	if isDomainError(err) {
		logger.Warn("domain error",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	} else {
		logger.Error("unexpected error",
			"error", err.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func mapError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrApplicationExists):
		return http.StatusConflict, errorResponse(CodeApplicationExists, err)

	case errors.Is(err, domain.ErrDeploymentExists):
		return http.StatusConflict, errorResponse(CodeDeploymentExists, err)

	case errors.Is(err, domain.ErrStatusOverridden):
		return http.StatusConflict, errorResponse(CodeStatusOverridden, err)

	case errors.Is(err, domain.ErrBeforeAuditStart):
		return http.StatusBadRequest, errorResponse(CodeBeforeAuditStart, err)

	case errors.Is(err, domain.ErrApplicationNotFound),
		errors.Is(err, domain.ErrDeploymentNotFound):
		return http.StatusNotFound, errorResponse(CodeNotFound, err)

	case errors.Is(err, domain.ErrHistoryUnavailable):
		return http.StatusBadGateway, errorResponse(CodeHistoryGone, err)

	case errors.Is(err, domain.ErrUpstreamTransient):
		return http.StatusServiceUnavailable, errorResponse(CodeUpstreamDown, err)

	case isValidationError(err):
		return http.StatusBadRequest, errorResponse(CodeValidationFailed, err)

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "internal server error",
			},
		}
	}
}

func errorResponse(code ErrorCode, err error) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	}
}

func isValidationError(err error) bool {
	return strings.HasPrefix(err.Error(), "validation failed")
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrApplicationExists) ||
		errors.Is(err, domain.ErrApplicationNotFound) ||
		errors.Is(err, domain.ErrDeploymentExists) ||
		errors.Is(err, domain.ErrDeploymentNotFound) ||
		errors.Is(err, domain.ErrStatusOverridden) ||
		errors.Is(err, domain.ErrBeforeAuditStart) ||
		errors.Is(err, domain.ErrHistoryUnavailable) ||
		errors.Is(err, domain.ErrUpstreamTransient) ||
		isValidationError(err)
}
