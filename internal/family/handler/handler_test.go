package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"kinship/internal/family/models"
	"kinship/internal/family/service"
	"kinship/internal/family/store"
	"kinship/pkg/testutil"
)

func newFamilyRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, err := service.New(store.NewInMemory())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func TestFamilyHandler(t *testing.T) {
	router := newFamilyRouter(t)
	account := uuid.NewString()

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		var created *models.Family

		testutil.When(t, "they create a family", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/families", map[string]string{"name": "Lovelace"})
			req = testutil.WithIdentity(req, account, "Ada", "ada@example.com")
			rr := testutil.DoRequest(router, req)

			testutil.AssertStatus(t, rr, http.StatusCreated)
			created = testutil.UnmarshalResponse[models.Family](t, rr)
			require.Equal(t, "Lovelace", created.Name)
			require.Equal(t, account, created.OwnerAccountID.String())
		})

		testutil.Then(t, "the family can be fetched and listed", func(t *testing.T) {
			require.NotNil(t, created)
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/families/"+created.ID.String()))
			testutil.AssertStatusOK(t, rr)

			req := testutil.WithIdentity(testutil.NewRequest(t, http.MethodGet, "/families"), account, "Ada", "")
			rr = testutil.DoRequest(router, req)
			testutil.AssertStatusOK(t, rr)
			listed := testutil.UnmarshalResponse[FamiliesResponse](t, rr)
			require.Len(t, listed.Families, 1)
		})

		testutil.Then(t, "a second family with the same name conflicts", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/families", map[string]string{"name": "lovelace"})
			req = testutil.WithIdentity(req, account, "Ada", "")
			testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusConflict, "conflict")
		})
	})

	testutil.Given(t, "no identity", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/families", map[string]string{"name": "Anon"})
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthorized")
	})

	testutil.Given(t, "an unknown family id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/families/"+uuid.NewString()))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/families/not-a-uuid"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
