package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voluntor/voluntor/internal/auth"
	"github.com/voluntor/voluntor/internal/chat"
	"github.com/voluntor/voluntor/internal/middleware"
	"github.com/voluntor/voluntor/internal/models"
	"github.com/voluntor/voluntor/internal/moderation"
	"github.com/voluntor/voluntor/internal/store/sqlstore"
)

// nopPeers drops every delivery; the REST tests don't care about live
// push.
type nopPeers struct{}

func (nopPeers) Deliver(string, []byte) error { return nil }

type testEnv struct {
	store    *sqlstore.SQLStore
	gateway  *chat.Gateway
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := chat.NewRegistry()
	router := chat.NewRouter(registry, nopPeers{}, zap.NewNop())
	gateway := chat.NewGateway(registry, router, st, moderation.Default(), zap.NewNop(), nil)

	return &testEnv{
		store:    st,
		gateway:  gateway,
		verifier: auth.NewVerifier("test-secret"),
	}
}

func (e *testEnv) createUser(t *testing.T, email, name, role, password string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.store.CreateUser(&models.User{
		Email: email, Password: string(hashed), Name: name, Role: role,
	}))
	user, err := e.store.GetUserByEmail(email)
	require.NoError(t, err)
	return user
}

// authorize attaches a valid bearer credential for the user.
func (e *testEnv) authorize(t *testing.T, req *http.Request, user *models.User) {
	t.Helper()
	credential, err := e.verifier.Issue(models.Identity{Email: user.Email, Name: user.Name})
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+credential)
}

// serveAuthed runs the handler behind the auth middleware, the way it is
// mounted in production.
func (e *testEnv) serveAuthed(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.serveVia(handler).ServeHTTP(rec, req)
	return rec
}

// serveVia wraps a handler in the auth middleware for mounting on a
// router.
func (e *testEnv) serveVia(handler http.HandlerFunc) http.Handler {
	return middleware.Auth(e.verifier)(handler)
}
