package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"kinship/internal/familytree/builder"
	"kinship/internal/familytree/metrics"
	"kinship/internal/familytree/models"
	memberModels "kinship/internal/member/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/requestcontext"
)

// MemberLister reads the active members of a family.
type MemberLister interface {
	List(ctx context.Context, familyID id.FamilyID, filter memberModels.ListFilter) ([]*memberModels.Member, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type FamilyGuard interface {
	RequireFamily(ctx context.Context, familyID id.FamilyID) error
}

// Service builds family trees. Concurrent requests for the same family share
// one load and build; nothing is cached between requests.
type Service struct {
	members  MemberLister
	families FamilyGuard
	auditor  AuditPublisher
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher records a tree_built operations event per completed load.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithFamilyGuard(g FamilyGuard) Option {
	return func(s *Service) {
		s.families = g
	}
}

func New(members MemberLister, opts ...Option) (*Service, error) {
	if members == nil {
		return nil, errors.New("member lister is required")
	}
	s := &Service{
		members: members,
		tracer:  otel.Tracer("kinship/familytree"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Build returns the tree for familyID. The result may be shared with other
// callers and must not be modified.
func (s *Service) Build(ctx context.Context, familyID id.FamilyID) (*models.Tree, error) {
	ctx, span := s.tracer.Start(ctx, "familytree.build", trace.WithAttributes(
		attribute.String("family_id", familyID.String()),
	))
	defer span.End()

	if familyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "family id is required")
	}
	if s.families != nil {
		if err := s.families.RequireFamily(ctx, familyID); err != nil {
			return nil, err
		}
	}

	// The shared build must outlive any single caller's cancellation.
	buildCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(familyID.String(), func() (any, error) {
		return s.load(buildCtx, familyID)
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	if s.metrics != nil {
		s.metrics.IncBuild(shared)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tree build failed")
		return nil, err
	}
	return v.(*models.Tree), nil
}

func (s *Service) load(ctx context.Context, familyID id.FamilyID) (*models.Tree, error) {
	start := time.Now()
	members, err := s.members.List(ctx, familyID, memberModels.ListFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load family members")
	}
	tree := builder.Build(familyID, members)

	if s.metrics != nil {
		s.metrics.ObserveBuild(start, len(tree.Nodes))
	}
	if s.auditor != nil {
		// Operations events are sampled and never fail the read.
		err := s.auditor.Emit(ctx, audit.Event{
			Category:  audit.EventTreeBuilt.Category(),
			Timestamp: requestcontext.Now(ctx),
			FamilyID:  familyID,
			ActorID:   requestcontext.AccountID(ctx),
			Action:    string(audit.EventTreeBuilt),
			RequestID: requestcontext.RequestID(ctx),
		})
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "tree audit event failed",
				"family_id", familyID.String(),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "family tree built",
			"family_id", familyID.String(),
			"nodes", len(tree.Nodes),
			"couples", len(tree.Couples),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return tree, nil
}
