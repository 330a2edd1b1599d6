package randomorg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/payment-service/internal/payment/domain"
	"github.com/orderflow/payment-service/pkg/logging"
)

func newTestClient(url string) *Client {
	return NewClient(logging.New("error"), url, 2*time.Second)
}

func TestDraw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("42\n"))
	}))
	defer srv.Close()

	n, err := newTestClient(srv.URL).Draw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDrawEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Draw(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestDrawMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not-a-number"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Draw(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestDrawServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Draw(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestDrawTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	_, err := newTestClient(srv.URL).Draw(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestFixedDraw(t *testing.T) {
	n, err := Fixed{N: 7}.Draw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
