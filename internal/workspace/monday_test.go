package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every request to srv regardless of the
// original host, so package-internal clients hitting a hardcoded external
// URL can still be pointed at an httptest.Server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func rewriteClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &http.Client{Transport: rewriteTransport{target: u}}
}

func TestListBoards_ParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"boards": []map[string]any{{"id": "b1", "name": "Sprint Board"}}},
		})
	}))
	defer srv.Close()

	c := NewMondayClient("tok-123")
	c.http = rewriteClient(t, srv)

	boards, err := c.ListBoards(context.Background())
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "b1", boards[0].ID)
	assert.Equal(t, "Sprint Board", boards[0].Name)

	_, err = c.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call within the TTL window must be served from cache")
}

func TestListUsers_Parses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"users": []map[string]any{{"id": "u1", "name": "Alice"}, {"id": "u2", "name": "Bob"}}},
		})
	}))
	defer srv.Close()

	c := NewMondayClient("tok-123")
	c.http = rewriteClient(t, srv)

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestQuery_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewMondayClient("bad-token")
	c.http = rewriteClient(t, srv)

	_, err := c.ListBoards(context.Background())
	assert.Error(t, err)
}
