package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/service"
)

type DeploymentHandler struct {
	verificationService *service.VerificationService
	deploymentRepo      repository.DeploymentRepository
	logger              *logger.Logger
}

func NewDeploymentHandler(
	verificationService *service.VerificationService,
	deploymentRepo repository.DeploymentRepository,
	logger *logger.Logger,
) *DeploymentHandler {
	return &DeploymentHandler{
		verificationService: verificationService,
		deploymentRepo:      deploymentRepo,
		logger:              logger.Component("handler/deployment"),
	}
}

func (h *DeploymentHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.RegisterDeployment)
	r.Get("/{deploymentID}", h.GetDeployment)
	r.Post("/{deploymentID}/verify", h.VerifyDeployment)
	r.Post("/{deploymentID}/approve", h.ApproveDeployment)
	r.Get("/{deploymentID}/unverified", h.ListUnverified)

	return r
}

type RegisterDeploymentRequest struct {
	ApplicationID string    `json:"application_id"`
	CommitSHA     string    `json:"commit_sha"`
	DeployedAt    time.Time `json:"deployed_at"`
}

func (h *DeploymentHandler) RegisterDeployment(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ApplicationID == "" || req.CommitSHA == "" || req.DeployedAt.IsZero() {
		h.logger.Warn("missing required fields")
		http.Error(w, "application_id, commit_sha, and deployed_at are required", http.StatusBadRequest)
		return
	}

	dep, err := h.verificationService.RegisterDeployment(r.Context(), req.ApplicationID, req.CommitSHA, req.DeployedAt)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(dep); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *DeploymentHandler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	dep, err := h.deploymentRepo.GetByID(r.Context(), deploymentID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(dep); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *DeploymentHandler) VerifyDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	result, err := h.verificationService.VerifyDeployment(r.Context(), deploymentID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type ApproveDeploymentRequest struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

func (h *DeploymentHandler) ApproveDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	var req ApproveDeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Actor == "" {
		h.logger.Warn("actor is required")
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}

	dep, err := h.verificationService.ManuallyApprove(r.Context(), deploymentID, req.Actor, req.Note)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(dep); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type UnverifiedResponse struct {
	Commits []domain.UnverifiedCommit `json:"commits"`
}

func (h *DeploymentHandler) ListUnverified(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	commits, err := h.deploymentRepo.ListUnverified(r.Context(), deploymentID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(UnverifiedResponse{Commits: commits}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
