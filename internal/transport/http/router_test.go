package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	familyHandler "kinship/internal/family/handler"
	familyService "kinship/internal/family/service"
	familyStore "kinship/internal/family/store"
	treeHandler "kinship/internal/familytree/handler"
	treeModels "kinship/internal/familytree/models"
	treeService "kinship/internal/familytree/service"
	jwttoken "kinship/internal/jwt_token"
	memberHandler "kinship/internal/member/handler"
	memberModels "kinship/internal/member/models"
	memberService "kinship/internal/member/service"
	memberStore "kinship/internal/member/store"
	platformmetrics "kinship/internal/platform/metrics"
	smartlinkHandler "kinship/internal/smartlink/handler"
	smartlinkService "kinship/internal/smartlink/service"
	id "kinship/pkg/domain"
	"kinship/pkg/platform/middleware/admin"
	"kinship/pkg/platform/middleware/auth"
	"kinship/pkg/testutil"
)

const adminToken = "operator-secret"

type RouterSuite struct {
	suite.Suite
	router  http.Handler
	health  *Health
	jwt     *jwttoken.JWTService
	account uuid.UUID
	token   string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()

	families, err := familyService.New(familyStore.NewInMemory())
	s.Require().NoError(err)
	ms := memberStore.NewInMemory()
	members, err := memberService.New(ms, memberStore.NewShardedPairTx(ms, time.Second),
		memberService.WithFamilyGuard(families))
	s.Require().NoError(err)
	trees, err := treeService.New(members)
	s.Require().NoError(err)
	links, err := smartlinkService.New(members)
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("test-key", "kinship-test", "")
	s.account = uuid.New()
	s.token, err = s.jwt.GenerateAccessToken(s.account, "Eve One", "e1@x.com", time.Hour)
	s.Require().NoError(err)

	s.health = NewHealth(time.Second)
	s.router = NewRouter(Deps{
		Logger:      logger,
		Metrics:     platformmetrics.New(reg),
		Gatherer:    reg,
		Health:      s.health,
		RequireAuth: auth.RequireAuth(jwttoken.NewJWTServiceAdapter(s.jwt), logger),
		Handlers: []Registrar{
			familyHandler.New(families, logger),
			memberHandler.New(members, logger, admin.RequireAdminToken(adminToken, logger)),
			treeHandler.New(trees, logger),
			smartlinkHandler.New(links, logger),
		},
	})
}

func (s *RouterSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	} else {
		req = testutil.NewRequest(s.T(), method, path)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) send(method, path string, body any) (int, string) {
	rec := s.request(method, path, body)
	return rec.Code, rec.Body.String()
}

func (s *RouterSuite) createMember(familyID id.FamilyID, name, gender string, generation int) *memberModels.Member {
	rec := s.request(http.MethodPost, "/families/"+familyID.String()+"/members",
		map[string]any{"name": name, "gender": gender, "generation": generation})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return testutil.UnmarshalResponse[memberModels.Member](s.T(), rec)
}

func (s *RouterSuite) TestHealthz() {
	s.Run("all checks pass", func() {
		s.health.Add("db", func(context.Context) error { return nil })
		rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(s.T(), rec)
		testutil.AssertJSONContains(s.T(), rec, "status", "ok")
	})

	s.Run("a failing dependency degrades the probe", func() {
		s.health.Add("redis", func(context.Context) error { return errors.New("connection refused") })
		rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rec, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(s.T(), rec, "status", "degraded")
	})
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.send(http.MethodGet, "/families", nil)
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rec)
	s.Contains(rec.Body.String(), "kinship_http_requests_total")
}

func (s *RouterSuite) TestRequestIDEchoed() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/healthz")
	req.Header.Set("X-Request-ID", "trace-me")
	rec := testutil.DoRequest(s.router, req)
	s.Equal("trace-me", rec.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestAuthRequired() {
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/families"))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "unauthorized")

	req := testutil.NewRequest(s.T(), http.MethodGet, "/families")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rec, http.StatusUnauthorized)
}

// TestSpouseScenario walks the documented A/B/C flow over HTTP.
func (s *RouterSuite) TestSpouseScenario() {
	code, body := s.send(http.MethodPost, "/families", map[string]string{"name": "Doe"})
	s.Require().Equal(http.StatusCreated, code, body)
	listed := testutil.UnmarshalResponse[familyHandler.FamiliesResponse](s.T(), s.request(http.MethodGet, "/families", nil))
	s.Require().Len(listed.Families, 1)
	family := listed.Families[0]
	base := "/families/" + family.ID.String()

	a := s.createMember(family.ID, "A", "male", 1)
	b := s.createMember(family.ID, "B", "female", 1)
	c := s.createMember(family.ID, "C", "male", 1)

	code, body = s.send(http.MethodPost, base+"/members/"+a.ID.String()+"/spouse", map[string]string{"spouse_id": b.ID.String()})
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.send(http.MethodPost, base+"/members/"+c.ID.String()+"/spouse", map[string]string{"spouse_id": b.ID.String()})
	s.Equal(http.StatusConflict, code)
	s.Contains(body, "already_married")

	code, body = s.send(http.MethodDelete, base+"/members/"+a.ID.String()+"/spouse", nil)
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.send(http.MethodPost, base+"/members/"+c.ID.String()+"/spouse", map[string]string{"spouse_id": b.ID.String()})
	s.Require().Equal(http.StatusOK, code, body)

	rec := s.request(http.MethodGet, base+"/tree", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	tree := testutil.UnmarshalResponse[treeModels.Tree](s.T(), rec)
	s.Require().Len(tree.Couples, 1)
	couple := tree.Couples[0]
	s.ElementsMatch([]id.MemberID{b.ID, c.ID}, []id.MemberID{couple.Primary, couple.Secondary})
	s.True(couple.Primary.Less(couple.Secondary))
	s.Empty(tree.Nodes[a.ID].Spouses)
}

func (s *RouterSuite) TestUnknownFamilyIsNotFound() {
	code, body := s.send(http.MethodGet, "/families/"+id.NewFamilyID().String()+"/members", nil)
	s.Equal(http.StatusNotFound, code, string(body))
}

func TestHealthWithoutChecks(t *testing.T) {
	h := NewHealth(0)
	rec := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
