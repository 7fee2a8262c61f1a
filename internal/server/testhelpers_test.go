package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Mdwiki-TD/auth-repo/internal/config"
	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
	"github.com/Mdwiki-TD/auth-repo/internal/domain"
	"github.com/Mdwiki-TD/auth-repo/internal/jwt"
	"github.com/Mdwiki-TD/auth-repo/internal/mediawiki"
)

const (
	testDomain    = "dashboard.example.org"
	testCookieKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testTokenKey  = "202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f"
)

type fakeOAuth struct {
	requestToken mediawiki.RequestToken
	authorizeURL string
	initiateErr  error

	accessToken mediawiki.AccessToken
	completeErr error

	username    string
	identifyErr error

	lastCallbackURL string
	lastVerifier    string
	lastRequestKey  string
}

func (f *fakeOAuth) Initiate(_ context.Context, callbackURL string) (mediawiki.RequestToken, string, error) {
	f.lastCallbackURL = callbackURL
	if f.initiateErr != nil {
		return mediawiki.RequestToken{}, "", f.initiateErr
	}
	return f.requestToken, f.authorizeURL, nil
}

func (f *fakeOAuth) Complete(_ context.Context, requestToken mediawiki.RequestToken, verifier string) (mediawiki.AccessToken, error) {
	f.lastRequestKey = requestToken.Key
	f.lastVerifier = verifier
	if f.completeErr != nil {
		return mediawiki.AccessToken{}, f.completeErr
	}
	return f.accessToken, nil
}

func (f *fakeOAuth) Identify(_ context.Context, _ mediawiki.AccessToken) (string, error) {
	if f.identifyErr != nil {
		return "", f.identifyErr
	}
	return f.username, nil
}

type fakeTokenRepo struct {
	creds   map[string]domain.AccessCredential
	saveErr error
	getErr  error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{creds: make(map[string]domain.AccessCredential)}
}

func (f *fakeTokenRepo) Save(_ context.Context, username, accessKey, accessSecret string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	username = strings.TrimSpace(username)
	f.creds[username] = domain.AccessCredential{Username: username, AccessKey: accessKey, AccessSecret: accessSecret}
	return nil
}

func (f *fakeTokenRepo) Get(_ context.Context, username string) (*domain.AccessCredential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	cred, ok := f.creds[strings.TrimSpace(username)]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (f *fakeTokenRepo) Delete(_ context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	_, ok := f.creds[username]
	delete(f.creds, username)
	return ok, nil
}

func (f *fakeTokenRepo) Exists(ctx context.Context, username string) (bool, error) {
	cred, err := f.Get(ctx, username)
	return cred != nil, err
}

type fakeUserRepo struct {
	ensured   []string
	ensureErr error
}

func (f *fakeUserRepo) EnsureExists(_ context.Context, username string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.ensured = append(f.ensured, username)
	return nil
}

type fakeRateLimiter struct {
	allowed bool
	err     error
}

func (f *fakeRateLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return f.allowed, f.err
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error {
	return f.err
}

type testServer struct {
	*Server
	cfg     *config.Config
	oauth   *fakeOAuth
	tokens  *fakeTokenRepo
	users   *fakeUserRepo
	crypto  *crypto.Service
	jwt     *jwt.Service
	clock   *clockwork.FakeClock
	limiter *fakeRateLimiter
}

type serverOption func(*testServer)

func withDomain(domain string) serverOption {
	return func(ts *testServer) { ts.cfg.Domain = domain }
}

func withRateLimiter(limiter *fakeRateLimiter) serverOption {
	return func(ts *testServer) { ts.limiter = limiter }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppEnv:        "development",
		Port:          "8080",
		Domain:        testDomain,
		CookieKey:     testCookieKey,
		TokenKey:      testTokenKey,
		JWTKey:        "test-jwt-key",
		SessionSecret: "test-session-secret",
	}

	ts := &testServer{
		cfg: cfg,
		oauth: &fakeOAuth{
			requestToken: mediawiki.RequestToken{Key: "req-key", Secret: "req-secret"},
			authorizeURL: "https://meta.wikimedia.org/w/index.php?title=Special:OAuth/authorize&oauth_token=req-key",
			accessToken:  mediawiki.AccessToken{Key: "access-key", Secret: "access-secret"},
			username:     "Alice Example",
		},
		tokens: newFakeTokenRepo(),
		users:  &fakeUserRepo{},
		clock:  clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(ts)
	}

	cryptoSvc, err := crypto.NewService(cfg.CookieKey, cfg.TokenKey)
	require.NoError(t, err)
	ts.crypto = cryptoSvc
	ts.jwt = jwt.NewService(cfg.JWTKey, cfg.Domain, ts.clock)

	var limiter loginRateLimiter
	if ts.limiter != nil {
		limiter = ts.limiter
	}

	ts.Server = NewServer(cfg, ts.oauth, ts.tokens, ts.users, ts.jwt, cryptoSvc, &fakePinger{}, nil, limiter, ts.clock)
	return ts
}

// serve runs a request through the full echo stack, middleware included.
func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

// loginAndCallback drives the full handshake and returns the callback
// response plus the cookies it set, keyed by name.
func (ts *testServer) loginAndCallback(t *testing.T, callbackQuery string) (*httptest.ResponseRecorder, map[string]*http.Cookie) {
	t.Helper()

	loginRec := ts.serve(httptest.NewRequest(http.MethodGet, "/auth/index.php?a=login", nil))
	require.Contains(t, []int{http.StatusFound, http.StatusOK}, loginRec.Code)

	target := "/auth/index.php?a=callback&oauth_verifier=verifier-123"
	if callbackQuery != "" {
		target += "&" + callbackQuery
	}
	callbackReq := httptest.NewRequest(http.MethodGet, target, nil)
	for _, cookie := range loginRec.Result().Cookies() {
		callbackReq.AddCookie(cookie)
	}

	rec := ts.serve(callbackReq)
	cookies := make(map[string]*http.Cookie)
	for _, cookie := range rec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}
	return rec, cookies
}
