package custom_http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "warden", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("hello"))
		case "/big":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := &DefaultClient{Headers: map[string]string{"User-Agent": "warden"}, MaxBytes: 16}
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		body, err := client.Get(ctx, srv.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("too large", func(t *testing.T) {
		_, err := client.Get(ctx, srv.URL+"/big")
		assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)
	})

	t.Run("status error", func(t *testing.T) {
		_, err := client.Get(ctx, srv.URL+"/missing")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := client.Get(ctx, "::not a url")
		assert.Error(t, err)
	})
}
