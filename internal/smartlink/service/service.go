package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	memberModels "kinship/internal/member/models"
	"kinship/internal/smartlink/matcher"
	"kinship/internal/smartlink/metrics"
	"kinship/internal/smartlink/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/email"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/requestcontext"
)

// Members is the slice of the member service smart-link writes through.
// All invariants, including account uniqueness, are enforced there.
type Members interface {
	ListUnlinked(ctx context.Context, familyID id.FamilyID) ([]*memberModels.Member, error)
	FindByAccount(ctx context.Context, familyID id.FamilyID, accountID id.AccountID) (*memberModels.Member, error)
	LinkAccount(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, accountID id.AccountID) (*memberModels.Member, error)
	Create(ctx context.Context, params memberModels.CreateParams) (*memberModels.Member, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	members Members
	options matcher.Options
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
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

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithMatchOptions sets the score threshold and candidate limit.
func WithMatchOptions(minScore float64, maxCandidates int) Option {
	return func(s *Service) {
		s.options = matcher.Options{MinScore: minScore, MaxCandidates: maxCandidates}
	}
}

func New(members Members, opts ...Option) (*Service, error) {
	if members == nil {
		return nil, errors.New("member service is required")
	}
	s := &Service{
		members: members,
		options: matcher.Options{MinScore: matcher.DefaultMinScore, MaxCandidates: matcher.DefaultMaxCandidates},
		tracer:  otel.Tracer("kinship/smartlink"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Suggest proposes members the caller may be. It never links anything.
func (s *Service) Suggest(ctx context.Context, familyID id.FamilyID) (_ models.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "smartlink.suggest", trace.WithAttributes(
		attribute.String("family_id", familyID.String()),
	))
	defer func() { endSpan(span, err) }()

	identity, err := callerIdentity(ctx)
	if err != nil {
		return models.Result{}, err
	}

	linked, err := s.members.FindByAccount(ctx, familyID, identity.AccountID)
	switch {
	case err == nil:
		s.record(ctx, familyID, metrics.OutcomeLinked, 0)
		result := models.Empty()
		result.LinkedMember = linked
		return result, nil
	case !dErrors.HasCode(err, dErrors.CodeNotFound):
		return models.Result{}, err
	}

	candidates, err := s.members.ListUnlinked(ctx, familyID)
	if err != nil {
		return models.Result{}, err
	}
	result := matcher.Match(models.Identity{Name: identity.Name, Email: identity.Email}, candidates, s.options)

	outcome, top := metrics.OutcomeNone, 0.0
	if len(result.PossibleMatches) > 0 {
		outcome, top = metrics.OutcomeCandidates, result.PossibleMatches[0].Score
	}
	if result.AutoMatch.Found {
		outcome = metrics.OutcomeAutoMatch
	}
	span.SetAttributes(
		attribute.Bool("auto_match", result.AutoMatch.Found),
		attribute.Int("candidates", len(result.PossibleMatches)),
	)
	s.record(ctx, familyID, outcome, top)
	return result, nil
}

// Confirm links the caller's account to memberID.
func (s *Service) Confirm(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (_ *memberModels.Member, err error) {
	ctx, span := s.tracer.Start(ctx, "smartlink.confirm", trace.WithAttributes(
		attribute.String("family_id", familyID.String()),
		attribute.String("member_id", memberID.String()),
	))
	defer func() { endSpan(span, err) }()

	identity, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.members.LinkAccount(ctx, familyID, memberID, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncConfirmed()
	}
	return m, nil
}

// NewPerson adds the caller as a new member, linked at creation. Name and
// email default to the caller's token claims.
func (s *Service) NewPerson(ctx context.Context, params memberModels.CreateParams) (_ *memberModels.Member, err error) {
	ctx, span := s.tracer.Start(ctx, "smartlink.new_person", trace.WithAttributes(
		attribute.String("family_id", params.FamilyID.String()),
	))
	defer func() { endSpan(span, err) }()

	identity, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if params.Name == "" {
		params.Name = identity.Name
	}
	if params.Name == "" {
		params.Name = email.DisplayName(identity.Email)
	}
	if params.Profile.Email == "" {
		params.Profile.Email = identity.Email
	}
	account := identity.AccountID
	params.LinkedAccountID = &account

	m, err := s.members.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncNewPerson()
	}
	return m, nil
}

func (s *Service) record(ctx context.Context, familyID id.FamilyID, outcome string, top float64) {
	if s.metrics != nil {
		s.metrics.IncSuggestion(outcome)
		if top > 0 {
			s.metrics.ObserveTopScore(top)
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "smart-link suggestion",
			"family_id", familyID.String(),
			"outcome", outcome,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Category:  audit.EventSmartLinkSuggested.Category(),
		Timestamp: requestcontext.Now(ctx),
		FamilyID:  familyID,
		ActorID:   requestcontext.AccountID(ctx),
		Action:    string(audit.EventSmartLinkSuggested),
		Reason:    outcome,
		RequestID: requestcontext.RequestID(ctx),
		Device:    requestcontext.Device(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "smart-link audit event failed",
			"family_id", familyID.String(),
			"outcome", outcome,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func callerIdentity(ctx context.Context) (requestcontext.AuthIdentity, error) {
	identity, ok := requestcontext.Identity(ctx)
	if !ok {
		return requestcontext.AuthIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated account is required")
	}
	return identity, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
