package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"kinship/internal/member/metrics"
	"kinship/internal/member/models"
	"kinship/internal/notify"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/sentinel"
)

// Store persists member records. FindByID returns members in any state.
type Store interface {
	Create(ctx context.Context, m *models.Member) error
	Save(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	Delete(ctx context.Context, memberID id.MemberID) error
	List(ctx context.Context, familyID id.FamilyID, filter models.ListFilter) ([]*models.Member, error)
	ListChildren(ctx context.Context, familyID id.FamilyID, parentID id.MemberID) ([]*models.Member, error)
	FindActiveByAccount(ctx context.Context, familyID id.FamilyID, accountID id.AccountID) (*models.Member, error)
}

// PairTx serializes work on two members. fn receives a context that carries
// the transaction; store calls made with it commit or roll back together.
type PairTx interface {
	RunInPairTx(ctx context.Context, a, b id.MemberID, fn func(ctx context.Context) error) error
}

// FamilyGuard fails with a not_found domain error for unknown families.
type FamilyGuard interface {
	RequireFamily(ctx context.Context, familyID id.FamilyID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Notifier interface {
	Publish(ctx context.Context, event notify.FamilyChanged) error
}

const defaultAncestryMaxDepth = 64

// Service owns member records and every relationship mutation. Relationship
// fields only change here, inside a pair transaction.
type Service struct {
	store            Store
	tx               PairTx
	families         FamilyGuard
	logger           *slog.Logger
	auditPublisher   AuditPublisher
	notifier         Notifier
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	ancestryMaxDepth int

	lineage [lineageShards]sync.Mutex
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

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithFamilyGuard(g FamilyGuard) Option {
	return func(s *Service) {
		s.families = g
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithAncestryMaxDepth bounds the ancestor walk AttachParent performs.
func WithAncestryMaxDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.ancestryMaxDepth = depth
		}
	}
}

func New(store Store, tx PairTx, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("member store is required")
	}
	if tx == nil {
		return nil, errors.New("pair transaction runner is required")
	}
	s := &Service{
		store:            store,
		tx:               tx,
		tracer:           otel.Tracer("kinship/member"),
		ancestryMaxDepth: defaultAncestryMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) requireFamily(ctx context.Context, familyID id.FamilyID) error {
	if familyID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "family id is required")
	}
	if s.families == nil {
		return nil
	}
	return s.families.RequireFamily(ctx, familyID)
}

// findScoped loads a member in any state. Members of other families are
// reported as not found.
func (s *Service) findScoped(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, label string) (*models.Member, error) {
	m, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, label+" not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+label)
	}
	if m.FamilyID != familyID {
		return nil, dErrors.New(dErrors.CodeNotFound, label+" not found")
	}
	return m, nil
}

// findActive is findScoped that also treats soft-deleted members as not found.
func (s *Service) findActive(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, label string) (*models.Member, error) {
	m, err := s.findScoped(ctx, familyID, memberID, label)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeNotFound, label+" not found")
	}
	return m, nil
}

// resolve follows a relationship pointer. A nil pointer or a purged target
// yields nil without error.
func (s *Service) resolve(ctx context.Context, ref *id.MemberID) (*models.Member, error) {
	if ref == nil {
		return nil, nil
	}
	m, err := s.store.FindByID(ctx, *ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load related member")
	}
	return m, nil
}

func (s *Service) save(ctx context.Context, m *models.Member) error {
	if err := s.store.Save(ctx, m); err != nil {
		return translateWrite(err, "failed to save member")
	}
	return nil
}

func translateWrite(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "account is already linked to another member of this family")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "member already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// txErr passes domain errors through and wraps anything else as internal.
func txErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
}
