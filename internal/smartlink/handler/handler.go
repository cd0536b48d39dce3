package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	memberModels "kinship/internal/member/models"
	"kinship/internal/smartlink/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/httputil"
	"kinship/pkg/requestcontext"
)

type Service interface {
	Suggest(ctx context.Context, familyID id.FamilyID) (models.Result, error)
	Confirm(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (*memberModels.Member, error)
	NewPerson(ctx context.Context, params memberModels.CreateParams) (*memberModels.Member, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts smart-link routes. They expect an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/families/{familyID}/smart-link", h.HandleSuggest)
	r.Post("/families/{familyID}/smart-link/confirm", h.HandleConfirm)
	r.Post("/families/{familyID}/smart-link/new-person", h.HandleNewPerson)
}

func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	result, err := h.service.Suggest(ctx, familyID)
	if err != nil {
		h.fail(ctx, w, "smart-link suggestion failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	member, err := h.service.Confirm(ctx, familyID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "smart-link confirm failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleNewPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NewPersonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	member, err := h.service.NewPerson(ctx, req.Params(familyID))
	if err != nil {
		h.fail(ctx, w, "smart-link new person failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) familyParam(w http.ResponseWriter, r *http.Request) (id.FamilyID, bool) {
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "familyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.FamilyID{}, false
	}
	return familyID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
