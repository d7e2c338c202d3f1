package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/service"
)

// ApplicationDefaults fill in omitted registration fields.
type ApplicationDefaults struct {
	BaseBranch     string
	AuditStartYear int
}

type ApplicationHandler struct {
	appService          *service.ApplicationService
	verificationService *service.VerificationService
	defaults            ApplicationDefaults
	logger              *logger.Logger
}

func NewApplicationHandler(
	appService *service.ApplicationService,
	verificationService *service.VerificationService,
	defaults ApplicationDefaults,
	logger *logger.Logger,
) *ApplicationHandler {
	return &ApplicationHandler{
		appService:          appService,
		verificationService: verificationService,
		defaults:            defaults,
		logger:              logger.Component("handler/application"),
	}
}

func (h *ApplicationHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.CreateApplication)
	r.Get("/{applicationID}", h.GetApplication)
	r.Patch("/{applicationID}/policy", h.UpdatePolicy)
	r.Patch("/{applicationID}/authorization", h.SetRepoStatus)
	r.Post("/{applicationID}/recheck", h.Recheck)

	return r
}

type CreateApplicationRequest struct {
	Name           string `json:"name"`
	Environment    string `json:"environment"`
	Repository     string `json:"repository"`
	BaseBranch     string `json:"base_branch"`
	ImplicitPolicy string `json:"implicit_policy"`
	AuditStartYear int    `json:"audit_start_year"`
}

func (h *ApplicationHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Environment == "" || req.Repository == "" {
		h.logger.Warn("missing required fields")
		http.Error(w, "name, environment, and repository are required", http.StatusBadRequest)
		return
	}

	if req.BaseBranch == "" {
		req.BaseBranch = h.defaults.BaseBranch
	}
	if req.ImplicitPolicy == "" {
		req.ImplicitPolicy = string(domain.PolicyOff)
	}
	if req.AuditStartYear == 0 {
		req.AuditStartYear = h.defaults.AuditStartYear
	}

	app, err := h.appService.Create(r.Context(), &domain.Application{
		Name:           req.Name,
		Environment:    req.Environment,
		Repository:     req.Repository,
		BaseBranch:     req.BaseBranch,
		ImplicitPolicy: domain.PolicyMode(req.ImplicitPolicy),
		AuditStartYear: req.AuditStartYear,
		RepoStatus:     domain.RepoPendingApproval,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(app); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")

	app, err := h.appService.Get(r.Context(), applicationID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(app); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type UpdatePolicyRequest struct {
	BaseBranch     string `json:"base_branch"`
	ImplicitPolicy string `json:"implicit_policy"`
	AuditStartYear int    `json:"audit_start_year"`
}

func (h *ApplicationHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")

	var req UpdatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	app, err := h.appService.UpdatePolicy(r.Context(), applicationID,
		req.BaseBranch, domain.PolicyMode(req.ImplicitPolicy), req.AuditStartYear)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(app); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type SetRepoStatusRequest struct {
	RepoStatus string `json:"repo_status"`
	Actor      string `json:"actor"`
}

func (h *ApplicationHandler) SetRepoStatus(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")

	var req SetRepoStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.RepoStatus == "" || req.Actor == "" {
		h.logger.Warn("missing required fields")
		http.Error(w, "repo_status and actor are required", http.StatusBadRequest)
		return
	}

	app, err := h.appService.SetRepoStatus(r.Context(), applicationID,
		domain.RepoAuthStatus(req.RepoStatus), req.Actor)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(app); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type RecheckResponse struct {
	Rechecked int `json:"rechecked"`
}

func (h *ApplicationHandler) Recheck(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationID")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	rechecked, err := h.verificationService.RecheckApplication(r.Context(), applicationID, force)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(RecheckResponse{Rechecked: rechecked}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
