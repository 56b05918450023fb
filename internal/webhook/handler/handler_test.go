package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"noro/internal/webhook/dedup"
	"noro/internal/webhook/forwarder"
	"noro/internal/webhook/mocks"
	"noro/internal/webhook/provider"
	"noro/internal/webhook/service"
)

const (
	btgSecret  = "btg-secret"
	asaasToken = "asaas-token"
	stripeBody = `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`
)

type HandlerSuite struct {
	suite.Suite
	processor *httptest.Server
	upstream  atomic.Int32
	respond   func(w http.ResponseWriter, r *http.Request)
	router    http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.upstream.Store(0)
	s.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.processor = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.upstream.Add(1)
		s.respond(w, r)
	}))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(
		provider.NewRegistry(btgSecret, asaasToken),
		dedup.NewMemory(),
		forwarder.NewHTTP(s.processor.URL, 5*time.Second, logger),
		logger,
	)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.processor.Close()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) deliver(provider, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func stripeHeaders() map[string]string {
	return map[string]string{"Stripe-Signature": "t=123,v1=abc"}
}

func (s *HandlerSuite) TestAcknowledgedDeliveryIs200Empty() {
	rec := s.deliver("stripe", stripeBody, stripeHeaders())

	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Body.String(), "providers need an empty 200 to stop redelivering")
	s.Equal(int32(1), s.upstream.Load())
}

// The provider's retry logic keys off the processor's verdict, so a non-2xx
// upstream response must come back byte for byte.
func (s *HandlerSuite) TestUpstreamRejectionProxiedVerbatim() {
	s.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad signature")) //nolint:errcheck // test server
	}

	rec := s.deliver("stripe", stripeBody, stripeHeaders())

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("bad signature", rec.Body.String())
}

func (s *HandlerSuite) TestDuplicateDeliveryIs200WithoutSecondForward() {
	rec := s.deliver("stripe", stripeBody, stripeHeaders())
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.deliver("stripe", stripeBody, stripeHeaders())
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Body.String())
	s.Equal(int32(1), s.upstream.Load(), "replayed delivery must not reach the processor")
}

func (s *HandlerSuite) TestMalformedPayloadIs400BeforeUpstream() {
	rec := s.deliver("stripe", "not json", stripeHeaders())

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("malformed payload", rec.Body.String())
	s.Zero(s.upstream.Load())
}

func (s *HandlerSuite) TestBTGWithoutBearerIs401() {
	rec := s.deliver("btg", `{"event":"charge.settled","data":{"id":"chg_1"}}`, nil)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("verification failed", rec.Body.String())
	s.Zero(s.upstream.Load())
}

func (s *HandlerSuite) TestAsaasDelivery() {
	body := `{"id":"evt_9","event":"PAYMENT_RECEIVED","payment":{"id":"pay_9"}}`
	rec := s.deliver("asaas", body, map[string]string{"asaas-access-token": asaasToken})

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(int32(1), s.upstream.Load())
}

func (s *HandlerSuite) TestUnknownProviderIs404() {
	rec := s.deliver("paypal", `{}`, nil)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("unknown provider", rec.Body.String())
}

func TestOpenCircuitAnswers503(t *testing.T) {
	ctrl := gomock.NewController(t)
	fwd := mocks.NewMockForwarder(ctrl)
	fwd.EXPECT().Forward(gomock.Any(), gomock.Any()).Return(nil, forwarder.ErrCircuitOpen)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(provider.NewRegistry(btgSecret, asaasToken), dedup.NewMemory(), fwd, logger)

	r := chi.NewRouter()
	New(svc, logger).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(stripeBody))
	req.Header.Set("Stripe-Signature", "t=123,v1=abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while circuit open, got %d", rec.Code)
	}
	if rec.Body.String() != "processor unavailable" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}
