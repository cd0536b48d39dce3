package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kinship/internal/family/metrics"
	"kinship/internal/family/models"
	"kinship/internal/family/service/mocks"
	"kinship/internal/family/store"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/sentinel"
	"kinship/pkg/requestcontext"
)

type FamilyServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	auditPub *mocks.MockAuditPublisher
	service  *Service
	ctx      context.Context
	owner    id.AccountID
}

func TestFamilyServiceSuite(t *testing.T) {
	suite.Run(t, new(FamilyServiceSuite))
}

func (s *FamilyServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditPub = mocks.NewMockAuditPublisher(s.ctrl)
	svc, err := New(store.NewInMemory(),
		WithAuditPublisher(s.auditPub),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.Require().NoError(err)
	s.service = svc
	s.owner = id.AccountID(uuid.New())
	s.ctx = requestcontext.WithIdentity(context.Background(), requestcontext.AuthIdentity{AccountID: s.owner})
}

func (s *FamilyServiceSuite) TestCreate() {
	s.Run("creates a family owned by the caller and audits it", func() {
		s.auditPub.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventFamilyCreated), e.Action)
			s.Equal(s.owner, e.ActorID)
			return nil
		})
		f, err := s.service.Create(s.ctx, "  Lovelace ")
		s.Require().NoError(err)
		s.Equal("Lovelace", f.Name)
		s.Equal(s.owner, f.OwnerAccountID)
	})

	s.Run("duplicate name for the same owner is a conflict", func() {
		s.auditPub.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
		_, err := s.service.Create(s.ctx, "Babbage")
		s.Require().NoError(err)
		_, err = s.service.Create(s.ctx, "babbage")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("requires an authenticated caller", func() {
		_, err := s.service.Create(context.Background(), "Anon")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("empty name is a validation error", func() {
		_, err := s.service.Create(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *FamilyServiceSuite) TestRequireFamily() {
	s.auditPub.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	f, err := s.service.Create(s.ctx, "Scoped")
	s.Require().NoError(err)

	s.NoError(s.service.RequireFamily(s.ctx, f.ID))
	s.True(dErrors.HasCode(s.service.RequireFamily(s.ctx, id.NewFamilyID()), dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.service.RequireFamily(s.ctx, id.FamilyID{}), dErrors.CodeBadRequest))
}

func (s *FamilyServiceSuite) TestStoreFailuresAreInternal() {
	st := mocks.NewMockStore(s.ctrl)
	svc, err := New(st)
	s.Require().NoError(err)

	st.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	_, err = svc.Get(s.ctx, id.NewFamilyID())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().ListByOwner(gomock.Any(), s.owner).Return([]*models.Family{}, nil)
	families, err := svc.ListMine(s.ctx)
	s.Require().NoError(err)
	s.Empty(families)

	st.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	_, err = svc.Get(s.ctx, id.NewFamilyID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *FamilyServiceSuite) TestAuditFailureFailsCreate() {
	s.auditPub.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit down"))
	_, err := s.service.Create(s.ctx, "Unrecorded")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
