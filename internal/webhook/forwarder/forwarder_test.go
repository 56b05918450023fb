package forwarder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noro/internal/webhook/models"
	"noro/pkg/platform/circuit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testEvent() *models.Event {
	return &models.Event{
		Provider:        models.ProviderStripe,
		EventID:         "evt_1",
		SignatureHeader: "Stripe-Signature",
		Signature:       "t=123,v1=abc",
		RawBody:         []byte(`{"id":"evt_1"}`),
		ReceivedAt:      time.Now().UTC(),
	}
}

func TestForwardReplaysBodyAndSignature(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fwd := NewHTTP(server.URL, 5*time.Second, testLogger())
	resp, err := fwd.Forward(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte(`{"id":"evt_1"}`), gotBody)
	assert.Equal(t, "t=123,v1=abc", gotHeader.Get("Stripe-Signature"))
	assert.Equal(t, "stripe", gotHeader.Get("X-Webhook-Provider"))
}

func TestForwardRelaysUpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad signature")) //nolint:errcheck // test server
	}))
	defer server.Close()

	fwd := NewHTTP(server.URL, 5*time.Second, testLogger())
	resp, err := fwd.Forward(context.Background(), testEvent())
	require.NoError(t, err, "a 4xx is an upstream verdict, not a transport failure")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []byte("bad signature"), resp.Body)
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fwd := NewHTTP(server.URL, 5*time.Second, testLogger())
	for i := 0; i < 5; i++ {
		_, err := fwd.Forward(context.Background(), testEvent())
		require.NoError(t, err, "5xx responses are relayed while the circuit is closed")
	}

	_, err := fwd.Forward(context.Background(), testEvent())
	assert.True(t, errors.Is(err, ErrCircuitOpen), "expected open circuit, got %v", err)
}

func TestCircuitClosesAfterProcessorRecovers(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// A zero retry interval lets every call probe once the circuit is open.
	breaker := circuit.New(circuit.WithRetryInterval(0))
	fwd := NewHTTP(server.URL, 5*time.Second, testLogger(), WithBreaker(breaker))

	for i := 0; i < 5; i++ {
		_, err := fwd.Forward(context.Background(), testEvent())
		require.NoError(t, err)
	}
	require.True(t, breaker.IsOpen(), "five consecutive 5xx responses open the circuit")

	healthy.Store(true)
	for i := 0; i < 3; i++ {
		resp, err := fwd.Forward(context.Background(), testEvent())
		require.NoError(t, err, "an open circuit must keep probing the processor")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.False(t, breaker.IsOpen(), "three successful probes close the circuit")

	resp, err := fwd.Forward(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
