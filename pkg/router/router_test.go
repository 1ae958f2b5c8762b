package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(body string) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestExactRoutes(t *testing.T) {
	r := New()
	r.GET("/api/v1/analyses", echo("list"))
	r.POST("/api/v1/analyses", echo("create"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	status, body := get(t, srv, "/api/v1/analyses")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "list", body)

	resp, err := http.Post(srv.URL+"/api/v1/analyses", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	created, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "create", string(created))
}

func TestWildcardSegment(t *testing.T) {
	r := New()
	r.GET("/api/v1/analyses/*", echo("detail"))
	r.GET("/api/v1/analyses/*/results", echo("results"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	_, body := get(t, srv, "/api/v1/analyses/abc-123")
	assert.Equal(t, "detail", body)

	// the longer wildcard route wins over the trailing catch-all
	_, body = get(t, srv, "/api/v1/analyses/abc-123/results")
	assert.Equal(t, "results", body)
}

func TestTrailingWildcardSwallowsRemainder(t *testing.T) {
	r := New()
	r.GET("/swagger/*", echo("swagger"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	_, body := get(t, srv, "/swagger/index.html")
	assert.Equal(t, "swagger", body)

	_, body = get(t, srv, "/swagger/doc/v1.json")
	assert.Equal(t, "swagger", body)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := New()
	r.GET("/api/v1/analyses", echo("list"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	status, _ := get(t, srv, "/api/v1/unknown")
	assert.Equal(t, http.StatusNotFound, status)

	// same path, unregistered method
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/analyses", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		request string
		route   string
		want    bool
	}{
		{"/api/v1/analyses/abc", "/api/v1/analyses/*", true},
		{"/api/v1/analyses/abc/results", "/api/v1/analyses/*/results", true},
		{"/api/v1/analyses/abc/logs", "/api/v1/analyses/*/results", false},
		{"/api/v1/analyses", "/api/v1/analyses/*", false},
		{"/swagger/a/b/c", "/swagger/*", true},
		{"/other/a", "/swagger/*", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matchWildcardRoute(tt.request, tt.route),
			"request %s against route %s", tt.request, tt.route)
	}
}

func TestHandleMountsHTTPHandler(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/static/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, "static")
	}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	_, body := get(t, srv, "/static/style.css")
	assert.Equal(t, "static", body)
}

func TestRouteRegistration(t *testing.T) {
	r := New()
	r.GET("/a", echo("a"))
	r.POST("/a", echo("a"))
	r.PUT("/b", echo("b"))

	assert.Len(t, r.Routes(), 3)
	assert.Len(t, r.Paths(), 2)
	assert.Contains(t, r.Routes(), "GET:/a")
	assert.Contains(t, r.Routes(), "PUT:/b")
}
