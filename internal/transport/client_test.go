package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexiq/internal/ir"
)

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.Host = server.URL
	if cfg.Company == "" {
		cfg.Company = "demo"
	}
	c, err := New(cfg, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return c
}

func TestNewRequiresPasswordWithUser(t *testing.T) {
	_, err := New(Config{Host: "https://flexibee.test", Company: "demo", User: "admin"})
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestNewRequiresHostAndCompany(t *testing.T) {
	_, err := New(Config{Host: "https://flexibee.test"})
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://flexibee.test/c/demo", BaseURL("https://flexibee.test", "demo"))
	assert.Equal(t, "https://flexibee.test/c/demo", BaseURL("https://flexibee.test/", "demo"))
}

func TestSendGet(t *testing.T) {
	var gotPath, gotQuery string
	var gotHeader http.Header
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"winstrom":{"adresar":[{"id":"1","kod":"FIRMA"}]}}`)
	})

	resp, err := c.Send(context.Background(), Request{
		Method: http.MethodGet,
		URL:    "adresar/(kod%20%3D%20%27FIRMA%27).json?code-as-id=true",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/c/demo/adresar/(kod%20%3D%20%27FIRMA%27).json", gotPath)
	assert.Equal(t, "code-as-id=true", gotQuery)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Empty(t, gotHeader.Get("Authorization"))
	assert.Empty(t, gotHeader.Get("X-FlexiBee-Authorization"))

	root, ok := resp.Payload.(ir.Object)
	require.True(t, ok)
	assert.Contains(t, root, "winstrom")
}

func TestSendAuthHeaders(t *testing.T) {
	var user, password, actingUser string
	var hasAuth bool
	c := newTestClient(t, Config{User: "admin", Password: "secret", AuthUser: "novak"}, func(w http.ResponseWriter, r *http.Request) {
		user, password, hasAuth = r.BasicAuth()
		actingUser = r.Header.Get("X-FlexiBee-Authorization")
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, URL: "adresar.json"})
	require.NoError(t, err)

	assert.True(t, hasAuth)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", password)
	assert.Equal(t, "novak", actingUser)
}

func TestSendPutBody(t *testing.T) {
	var method string
	var body []byte
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"winstrom":{"stats":{"created":"1"}}}`)
	})

	resp, err := c.Send(context.Background(), Request{
		Method: http.MethodPut,
		URL:    "adresar.json?code-in-response=true",
		Body: ir.NewObject(ir.O("winstrom", ir.NewObject(
			ir.O("adresar", ir.NewObject(ir.O("kod", ir.String("NOVA")))),
		))),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"winstrom":{"adresar":{"kod":"NOVA"}}}`, string(body))
}

func TestSendNotFound(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"winstrom":{"success":"false","message":"not found"}}`)
	})

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, URL: "adresar/123.json"})
	require.ErrorIs(t, err, ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.NotNil(t, resp.Payload)
}

func TestSendErrorStatusIsReturned(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `<html>bad request</html>`)
	})

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, URL: "adresar.json"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, ir.String("<html>bad request</html>"), resp.Payload)
}

func TestSendInvalidJSONOnSuccess(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	})

	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, URL: "adresar.json"})
	assert.Error(t, err)
}

func TestSendEmptyBody(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := c.Send(context.Background(), Request{Method: http.MethodDelete, URL: "adresar/1.json"})
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, resp.Payload)
}

func TestSendGzipResponse(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write([]byte(`{"winstrom":{"@rowCount":"42"}}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var acceptEncoding string
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(compressed.Bytes())
	})

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, URL: "adresar.json"})
	require.NoError(t, err)
	assert.Equal(t, "gzip", acceptEncoding)

	root := resp.Payload.(ir.Object)
	envelope := root["winstrom"].(ir.Object)
	assert.Equal(t, ir.String("42"), envelope["@rowCount"])
}

func TestSendHonorsContext(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Send(ctx, Request{Method: http.MethodGet, URL: "adresar.json"})
	assert.ErrorIs(t, err, context.Canceled)
}
