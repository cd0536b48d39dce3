package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kinship/internal/family/metrics"
	"kinship/internal/family/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/sentinel"
	"kinship/pkg/requestcontext"
)

type Store interface {
	CreateIfNameAvailable(ctx context.Context, f *models.Family) error
	FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error)
	ListByOwner(ctx context.Context, owner id.AccountID) ([]*models.Family, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages families and answers the family scope check member
// operations depend on.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("family store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create makes a family owned by the authenticated account.
func (s *Service) Create(ctx context.Context, name string) (*models.Family, error) {
	owner := requestcontext.AccountID(ctx)
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	f, err := models.NewFamily(id.NewFamilyID(), name, owner, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIfNameAvailable(ctx, f); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "you already have a family with this name")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create family")
	}

	if err := s.logAudit(ctx, f); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementFamilyCreated()
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, familyID id.FamilyID) (*models.Family, error) {
	if familyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "family id is required")
	}
	f, err := s.store.FindByID(ctx, familyID)
	if err != nil {
		return nil, wrapFamilyErr(err)
	}
	return f, nil
}

// ListMine returns the families the authenticated account owns.
func (s *Service) ListMine(ctx context.Context) ([]*models.Family, error) {
	owner := requestcontext.AccountID(ctx)
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	families, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list families")
	}
	return families, nil
}

// RequireFamily fails with not_found when familyID does not exist.
func (s *Service) RequireFamily(ctx context.Context, familyID id.FamilyID) error {
	if s.metrics != nil {
		defer s.metrics.ObserveRequireFamily(time.Now())
	}
	_, err := s.Get(ctx, familyID)
	return err
}

func (s *Service) logAudit(ctx context.Context, f *models.Family) error {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(audit.EventFamilyCreated),
			"family_id", f.ID.String(),
			"owner_account_id", f.OwnerAccountID.String(),
			"request_id", requestID,
			"event", string(audit.EventFamilyCreated),
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  audit.EventFamilyCreated.Category(),
		Timestamp: requestcontext.Now(ctx),
		FamilyID:  f.ID,
		ActorID:   f.OwnerAccountID,
		Action:    string(audit.EventFamilyCreated),
		RequestID: requestID,
		Device:    requestcontext.Device(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func wrapFamilyErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "family not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load family")
}
