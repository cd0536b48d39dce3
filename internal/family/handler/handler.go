package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kinship/internal/family/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/httputil"
	"kinship/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, name string) (*models.Family, error)
	Get(ctx context.Context, familyID id.FamilyID) (*models.Family, error)
	ListMine(ctx context.Context) ([]*models.Family, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/families", h.HandleCreate)
	r.Get("/families", h.HandleListMine)
	r.Get("/families/{familyID}", h.HandleGet)
}

// CreateFamilyRequest is the body of POST /families.
type CreateFamilyRequest struct {
	Name string `json:"name"`
}

func (r *CreateFamilyRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateFamilyRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 4*models.MaxFamilyNameLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	return nil
}

type FamiliesResponse struct {
	Families []*models.Family `json:"families"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateFamilyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	f, err := h.service.Create(ctx, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "create family failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "family created",
		"request_id", requestID,
		"family_id", f.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "familyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.service.Get(r.Context(), familyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	families, err := h.service.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if families == nil {
		families = []*models.Family{}
	}
	httputil.WriteJSON(w, http.StatusOK, FamiliesResponse{Families: families})
}
