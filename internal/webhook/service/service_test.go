package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"noro/internal/webhook/dedup"
	"noro/internal/webhook/forwarder"
	"noro/internal/webhook/mocks"
	"noro/internal/webhook/models"
	"noro/internal/webhook/provider"
	dErrors "noro/pkg/domain-errors"
)

const (
	btgSecret  = "btg-secret"
	asaasToken = "asaas-token"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	forwarder *mocks.MockForwarder
	svc       *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.forwarder = mocks.NewMockForwarder(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.svc = New(
		provider.NewRegistry(btgSecret, asaasToken),
		dedup.NewMemory(),
		s.forwarder,
		logger,
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func stripeHeaders() http.Header {
	h := http.Header{}
	h.Set("Stripe-Signature", "t=123,v1=abc")
	return h
}

func btgHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+btgSecret)
	return h
}

const stripeBody = `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`

func (s *ServiceSuite) TestStripeDeliveryForwarded() {
	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *models.Event) (*forwarder.Response, error) {
			s.Equal(models.ProviderStripe, event.Provider)
			s.Equal("evt_1", event.EventID)
			s.Equal("pi_1", event.ReferenceID)
			s.Equal([]byte(stripeBody), event.RawBody, "raw body must be forwarded byte for byte")
			s.Equal("t=123,v1=abc", event.Signature)
			return &forwarder.Response{StatusCode: http.StatusOK}, nil
		})

	result, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().NoError(err)
	s.Equal(models.OutcomeAcknowledged, result.Outcome)
}

func (s *ServiceSuite) TestDuplicateDeliveryIsNotForwardedTwice() {
	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		Return(&forwarder.Response{StatusCode: http.StatusOK}, nil).
		Times(1)

	first, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().NoError(err)
	s.Equal(models.OutcomeAcknowledged, first.Outcome)

	second, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().NoError(err)
	s.Equal(models.OutcomeDuplicate, second.Outcome, "redelivery must be a no-op")
}

func (s *ServiceSuite) TestUpstreamRejectionRelayedAndRetriable() {
	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		Return(&forwarder.Response{StatusCode: http.StatusBadRequest, Body: []byte("bad signature")}, nil).
		Times(2)

	result, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().NoError(err)
	s.Equal(models.OutcomeUpstreamErr, result.Outcome)
	s.Equal(http.StatusBadRequest, result.StatusCode)
	s.Equal([]byte("bad signature"), result.Body)

	// The failed delivery must not be remembered as seen; the provider's
	// redelivery goes upstream again.
	result, err = s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().NoError(err)
	s.Equal(models.OutcomeUpstreamErr, result.Outcome)
}

func (s *ServiceSuite) TestForwarderFailure() {
	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte(stripeBody))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamFailure))
}

func (s *ServiceSuite) TestStripeMissingSignatureRejected() {
	_, err := s.svc.Process(context.Background(), models.ProviderStripe, http.Header{}, []byte(stripeBody))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestBTGBearerVerification() {
	body := []byte(`{"event":"charge.settled","data":{"id":"chg_1"}}`)

	_, err := s.svc.Process(context.Background(), models.ProviderBTG, http.Header{}, body)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "missing bearer: %v", err)

	wrong := http.Header{}
	wrong.Set("Authorization", "Bearer wrong-secret")
	_, err = s.svc.Process(context.Background(), models.ProviderBTG, wrong, body)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "wrong bearer: %v", err)

	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		Return(&forwarder.Response{StatusCode: http.StatusOK}, nil)
	result, err := s.svc.Process(context.Background(), models.ProviderBTG, btgHeaders(), body)
	s.Require().NoError(err)
	s.Equal(models.OutcomeAcknowledged, result.Outcome)
}

func (s *ServiceSuite) TestAsaasTokenVerification() {
	body := []byte(`{"id":"evt_9","event":"PAYMENT_RECEIVED","payment":{"id":"pay_9"}}`)

	h := http.Header{}
	h.Set("asaas-access-token", asaasToken)
	s.forwarder.EXPECT().
		Forward(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *models.Event) (*forwarder.Response, error) {
			s.Equal("evt_9", event.EventID)
			s.Equal("pay_9", event.ReferenceID)
			return &forwarder.Response{StatusCode: http.StatusOK}, nil
		})

	result, err := s.svc.Process(context.Background(), models.ProviderAsaas, h, body)
	s.Require().NoError(err)
	s.Equal(models.OutcomeAcknowledged, result.Outcome)
}

func (s *ServiceSuite) TestMalformedPayloadRejected() {
	_, err := s.svc.Process(context.Background(), models.ProviderStripe, stripeHeaders(), []byte("not json"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestUnknownProvider() {
	_, err := s.svc.Process(context.Background(), "paypal", http.Header{}, []byte(`{}`))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
