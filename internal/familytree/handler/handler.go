package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kinship/internal/familytree/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/httputil"
	"kinship/pkg/requestcontext"
)

type Service interface {
	Build(ctx context.Context, familyID id.FamilyID) (*models.Tree, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/families/{familyID}/tree", h.HandleTree)
}

// HandleTree handles GET /families/{familyID}/tree.
func (h *Handler) HandleTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "familyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tree, err := h.service.Build(ctx, familyID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "tree build failed",
				"request_id", requestcontext.RequestID(ctx),
				"family_id", familyID.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tree)
}
