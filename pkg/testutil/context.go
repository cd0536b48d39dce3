package testutil

import (
	"net/http"

	id "kinship/pkg/domain"
	"kinship/pkg/requestcontext"
)

// WithIdentity attaches the account the auth middleware would have resolved
// from a bearer token. An unparsable accountID leaves the request anonymous,
// which is how handler tests exercise the 401 paths.
func WithIdentity(req *http.Request, accountID, name, email string) *http.Request {
	account, err := id.ParseAccountID(accountID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithIdentity(req.Context(), requestcontext.AuthIdentity{
		AccountID: account,
		Name:      name,
		Email:     email,
	}))
}
