package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"kinship/internal/familytree/models"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/testutil"
)

type stubService struct {
	tree *models.Tree
	err  error
}

func (s stubService) Build(_ context.Context, _ id.FamilyID) (*models.Tree, error) {
	return s.tree, s.err
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandleTree(t *testing.T) {
	familyID := id.NewFamilyID()
	a, b := id.NewMemberID(), id.NewMemberID()
	tree := &models.Tree{
		FamilyID: familyID,
		Nodes: map[id.MemberID]*models.Node{
			a: {Parents: []id.MemberID{}, Spouses: []id.MemberID{b}, Children: []id.MemberID{}},
			b: {Parents: []id.MemberID{}, Spouses: []id.MemberID{a}, Children: []id.MemberID{}},
		},
		Roots:   []id.MemberID{a, b},
		Couples: []models.Couple{{Primary: a, Secondary: b}},
	}

	t.Run("returns the adjacency map", func(t *testing.T) {
		router := newRouter(stubService{tree: tree})
		req := httptest.NewRequest(http.MethodGet, "/families/"+familyID.String()+"/tree", nil)
		rec := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rec)
		testutil.AssertJSONHasKey(t, rec, "nodes")
		testutil.AssertJSONHasKey(t, rec, "couples")
		testutil.AssertJSONHasKey(t, rec, "roots")
	})

	t.Run("malformed family id", func(t *testing.T) {
		router := newRouter(stubService{tree: tree})
		req := httptest.NewRequest(http.MethodGet, "/families/nope/tree", nil)
		rec := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("unknown family", func(t *testing.T) {
		router := newRouter(stubService{err: dErrors.New(dErrors.CodeNotFound, "family not found")})
		req := httptest.NewRequest(http.MethodGet, "/families/"+familyID.String()+"/tree", nil)
		rec := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	})
}
