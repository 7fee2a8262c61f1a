package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func queryContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestCreateState(t *testing.T) {
	tests := []struct {
		name   string
		target string
		keys   []string
		want   map[string]string
	}{
		{
			name:   "collects allow-listed params",
			target: "/?cat=Medicine&code=xyz&test=1",
			keys:   loginStateKeys,
			want:   map[string]string{"cat": "Medicine", "code": "xyz", "test": "1"},
		},
		{
			name:   "drops params outside the allow-list",
			target: "/?cat=Medicine&evil=payload",
			keys:   loginStateKeys,
			want:   map[string]string{"cat": "Medicine"},
		},
		{
			name:   "drops empty values",
			target: "/?cat=&code=xyz",
			keys:   loginStateKeys,
			want:   map[string]string{"code": "xyz"},
		},
		{
			name:   "callback set excludes test",
			target: "/?cat=Medicine&test=1",
			keys:   callbackStateKeys,
			want:   map[string]string{"cat": "Medicine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := createState(queryContext(tt.target), tt.keys)
			assert.Len(t, state, len(tt.want))
			for key, want := range tt.want {
				assert.Equal(t, want, state.Get(key))
			}
		})
	}
}

func TestCreateReturnTo(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{
			name:    "own domain accepted",
			referer: "https://" + testDomain + "/Translation_Dashboard/page",
			want:    "https://" + testDomain + "/Translation_Dashboard/page",
		},
		{
			name:    "localhost accepted",
			referer: "http://localhost:8080/somewhere",
			want:    "http://localhost:8080/somewhere",
		},
		{
			name:    "foreign host rejected",
			referer: "https://evil.example.com/page",
			want:    "",
		},
		{
			name:    "auth url rejected",
			referer: "https://" + testDomain + "/auth/index.php?a=login",
			want:    "",
		},
		{
			name:    "empty referer rejected",
			referer: "",
			want:    "",
		},
		{
			name:    "unparseable referer rejected",
			referer: "://not-a-url",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.createReturnTo(tt.referer))
		})
	}
}

func TestCallbackRedirectTarget(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{
			name:   "no state falls back to dashboard",
			target: "/",
			want:   defaultRedirect,
		},
		{
			name:   "state forwarded to dashboard",
			target: "/?cat=Medicine&code=xyz",
			want:   defaultRedirect + "?cat=Medicine&code=xyz",
		},
		{
			name:   "return_to wins",
			target: "/?return_to=https://" + testDomain + "/page&cat=Medicine",
			want:   "https://" + testDomain + "/page",
		},
		{
			name:   "auth return_to rejected",
			target: "/?return_to=https://" + testDomain + "/auth/index.php",
			want:   defaultRedirect,
		},
		{
			name:   "dashboard index return_to collapses to default",
			target: "/?return_to=https://" + testDomain + defaultRedirect,
			want:   defaultRedirect,
		},
		{
			name:   "scheme-relative return_to rejected",
			target: "/?return_to=" + url.QueryEscape("//evil.example.com/phish"),
			want:   defaultRedirect,
		},
		{
			name:   "non-url return_to rejected",
			target: "/?return_to=not-a-url-at-all",
			want:   defaultRedirect,
		},
		{
			name:   "relative path return_to rejected",
			target: "/?return_to=" + url.QueryEscape("/somewhere/else"),
			want:   defaultRedirect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.callbackRedirectTarget(queryContext(tt.target)))
		})
	}
}
