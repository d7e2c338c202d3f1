package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"application exists", domain.ErrApplicationExists, http.StatusConflict, CodeApplicationExists},
		{"deployment exists", domain.ErrDeploymentExists, http.StatusConflict, CodeDeploymentExists},
		{"status overridden", domain.ErrStatusOverridden, http.StatusConflict, CodeStatusOverridden},
		{"before audit start", domain.ErrBeforeAuditStart, http.StatusBadRequest, CodeBeforeAuditStart},
		{"application not found", domain.ErrApplicationNotFound, http.StatusNotFound, CodeNotFound},
		{"deployment not found", domain.ErrDeploymentNotFound, http.StatusNotFound, CodeNotFound},
		{"history unavailable", domain.ErrHistoryUnavailable, http.StatusBadGateway, CodeHistoryGone},
		{"upstream transient", domain.ErrUpstreamTransient, http.StatusServiceUnavailable, CodeUpstreamDown},
		{"validation failure", errors.New("validation failed: name: cannot be blank"), http.StatusBadRequest, CodeValidationFailed},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := mapError(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestMapErrorWrapped(t *testing.T) {
	err := fmt.Errorf("get deployment: %w", domain.ErrDeploymentNotFound)
	status, resp := mapError(err)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, CodeNotFound, resp.Error.Code)
}
