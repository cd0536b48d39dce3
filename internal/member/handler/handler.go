package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/httputil"
	"kinship/pkg/requestcontext"
)

// Service is the member service as the HTTP layer sees it.
type Service interface {
	Create(ctx context.Context, params models.CreateParams) (*models.Member, error)
	Get(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (*models.Member, error)
	Update(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, patch []byte) (*models.Member, error)
	List(ctx context.Context, familyID id.FamilyID, filter models.ListFilter) ([]*models.Member, error)
	ListDeleted(ctx context.Context, familyID id.FamilyID) ([]*models.Member, error)
	SoftDelete(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) error
	Restore(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (*models.Member, models.RestoreReport, error)
	Purge(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) error
	AttachSpouse(ctx context.Context, familyID id.FamilyID, aID, bID id.MemberID) ([]*models.Member, error)
	DetachSpouse(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) ([]*models.Member, error)
	AttachParent(ctx context.Context, familyID id.FamilyID, childID id.MemberID, role models.Role, parentID id.MemberID) (*models.Member, error)
	DetachParent(ctx context.Context, familyID id.FamilyID, childID id.MemberID, role models.Role) (*models.Member, error)
}

// Handler serves member and relationship endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	requireAdmin func(http.Handler) http.Handler
}

// New builds a member handler. requireAdmin guards the trash, restore and
// purge routes and soft delete.
func New(service Service, logger *slog.Logger, requireAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		requireAdmin: requireAdmin,
	}
}

// Register mounts member routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/families/{familyID}/members", h.HandleCreate)
	r.Get("/families/{familyID}/members", h.HandleList)
	r.Get("/families/{familyID}/members/{memberID}", h.HandleGet)
	r.Patch("/families/{familyID}/members/{memberID}", h.HandleUpdate)

	r.Post("/families/{familyID}/members/{memberID}/spouse", h.HandleAttachSpouse)
	r.Delete("/families/{familyID}/members/{memberID}/spouse", h.HandleDetachSpouse)
	r.Put("/families/{familyID}/members/{memberID}/parents/{role}", h.HandleAttachParent)
	r.Delete("/families/{familyID}/members/{memberID}/parents/{role}", h.HandleDetachParent)

	r.Group(func(admin chi.Router) {
		if h.requireAdmin != nil {
			admin.Use(h.requireAdmin)
		}
		admin.Delete("/families/{familyID}/members/{memberID}", h.HandleSoftDelete)
		admin.Post("/families/{familyID}/members/{memberID}/restore", h.HandleRestore)
		admin.Delete("/families/{familyID}/members/{memberID}/purge", h.HandlePurge)
		admin.Get("/families/{familyID}/trash", h.HandleListDeleted)
	})
}

// HandleCreate handles POST /families/{familyID}/members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, err := h.service.Create(ctx, req.Params(familyID))
	if err != nil {
		h.fail(ctx, w, "create member failed", err, "family_id", familyID.String())
		return
	}

	h.logger.InfoContext(ctx, "member created",
		"request_id", requestID,
		"family_id", familyID.String(),
		"member_id", m.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	m, err := h.service.Get(r.Context(), familyID, memberID)
	if err != nil {
		h.fail(r.Context(), w, "get member failed", err, "member_id", memberID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// HandleList handles GET /families/{familyID}/members with optional
// generation, gender, name, status and unlinked query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.service.List(r.Context(), familyID, filter)
	if err != nil {
		h.fail(r.Context(), w, "list members failed", err, "family_id", familyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse(members))
}

func (h *Handler) HandleListDeleted(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return
	}
	members, err := h.service.ListDeleted(r.Context(), familyID)
	if err != nil {
		h.fail(r.Context(), w, "list deleted members failed", err, "family_id", familyID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse(members))
}

// HandleUpdate handles PATCH with an RFC 7396 merge-patch body.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	patch, err := httputil.ReadBody(r)
	if err != nil || len(patch) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	m, err := h.service.Update(ctx, familyID, memberID, patch)
	if err != nil {
		h.fail(ctx, w, "update member failed", err, "member_id", memberID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleSoftDelete(w http.ResponseWriter, r *http.Request) {
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(r.Context(), familyID, memberID); err != nil {
		h.fail(r.Context(), w, "soft delete failed", err, "member_id", memberID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	m, report, err := h.service.Restore(ctx, familyID, memberID)
	if err != nil {
		h.fail(ctx, w, "restore failed", err, "member_id", memberID.String())
		return
	}
	h.logger.InfoContext(ctx, "member restored",
		"request_id", requestcontext.RequestID(ctx),
		"member_id", memberID.String(),
		"cleared", report.Cleared(),
	)
	httputil.WriteJSON(w, http.StatusOK, RestoreResponse{Member: m, Repairs: report})
}

func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	if err := h.service.Purge(r.Context(), familyID, memberID); err != nil {
		h.fail(r.Context(), w, "purge failed", err, "member_id", memberID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAttachSpouse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachSpouseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	members, err := h.service.AttachSpouse(ctx, familyID, memberID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "attach spouse failed", err, "member_id", memberID.String(), "spouse_id", req.SpouseID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse(members))
}

func (h *Handler) HandleDetachSpouse(w http.ResponseWriter, r *http.Request) {
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	members, err := h.service.DetachSpouse(r.Context(), familyID, memberID)
	if err != nil {
		h.fail(r.Context(), w, "detach spouse failed", err, "member_id", memberID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse(members))
}

func (h *Handler) HandleAttachParent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachParentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	child, err := h.service.AttachParent(ctx, familyID, memberID, role, req.parsed)
	if err != nil {
		h.fail(ctx, w, "attach parent failed", err, "member_id", memberID.String(), "role", string(role))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, child)
}

func (h *Handler) HandleDetachParent(w http.ResponseWriter, r *http.Request) {
	familyID, memberID, ok := h.memberParams(w, r)
	if !ok {
		return
	}
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	child, err := h.service.DetachParent(r.Context(), familyID, memberID, role)
	if err != nil {
		h.fail(r.Context(), w, "detach parent failed", err, "member_id", memberID.String(), "role", string(role))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, child)
}

func (h *Handler) familyParam(w http.ResponseWriter, r *http.Request) (id.FamilyID, bool) {
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "familyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.FamilyID{}, false
	}
	return familyID, true
}

func (h *Handler) memberParams(w http.ResponseWriter, r *http.Request) (id.FamilyID, id.MemberID, bool) {
	familyID, ok := h.familyParam(w, r)
	if !ok {
		return id.FamilyID{}, id.MemberID{}, false
	}
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.FamilyID{}, id.MemberID{}, false
	}
	return familyID, memberID, true
}

// fail logs at warn for caller errors and at error for internal ones, then
// writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
