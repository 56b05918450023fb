// Package provider normalizes and verifies payment-provider deliveries.
// Each provider speaks its own payload shape and authentication scheme; the
// adapters here map all of them onto the canonical event so the rest of the
// pipeline is provider-agnostic.
package provider

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"noro/internal/webhook/models"
	dErrors "noro/pkg/domain-errors"
)

// Adapter normalizes one provider's deliveries and verifies their
// authenticity at the edge.
type Adapter interface {
	Name() string
	// Normalize maps the raw delivery onto the canonical event. It must not
	// mutate the body; downstream signature checks need the exact bytes.
	Normalize(header http.Header, body []byte, receivedAt time.Time) (*models.Event, error)
	// Verify authenticates the delivery. Adapters that cannot verify locally
	// check for the presence of credentials and leave validation to the
	// downstream processor.
	Verify(event *models.Event) error
}

// Registry holds the configured adapters keyed by provider name.
type Registry map[string]Adapter

// NewRegistry builds the default adapter set.
func NewRegistry(btgSecret, asaasToken string) Registry {
	return Registry{
		models.ProviderStripe: Stripe{},
		models.ProviderBTG:    BTG{Secret: btgSecret},
		models.ProviderAsaas:  Asaas{Token: asaasToken},
	}
}

func badPayload(msg string) error {
	return dErrors.New(dErrors.CodeInvalidInput, msg)
}

func unauthenticated(msg string) error {
	return dErrors.New(dErrors.CodeUnauthorized, msg)
}

// Stripe deliveries carry a Stripe-Signature header computed over the raw
// body. The secret lives with the downstream processor, so the adapter only
// requires the header to be present and replays it unchanged.
type Stripe struct{}

func (Stripe) Name() string { return models.ProviderStripe }

type stripePayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (Stripe) Normalize(header http.Header, body []byte, receivedAt time.Time) (*models.Event, error) {
	var payload stripePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, badPayload("malformed stripe payload")
	}
	if payload.ID == "" {
		return nil, badPayload("stripe payload missing event id")
	}
	return &models.Event{
		Provider:        models.ProviderStripe,
		EventID:         payload.ID,
		EventType:       payload.Type,
		ReferenceID:     payload.Data.Object.ID,
		SignatureHeader: "Stripe-Signature",
		Signature:       header.Get("Stripe-Signature"),
		RawBody:         body,
		ReceivedAt:      receivedAt,
	}, nil
}

func (Stripe) Verify(event *models.Event) error {
	if event.Signature == "" {
		return unauthenticated("missing stripe signature")
	}
	return nil
}

// BTG deliveries authenticate with a shared bearer secret.
type BTG struct {
	Secret string
}

func (BTG) Name() string { return models.ProviderBTG }

type btgPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (BTG) Normalize(header http.Header, body []byte, receivedAt time.Time) (*models.Event, error) {
	var payload btgPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, badPayload("malformed btg payload")
	}
	if payload.Data.ID == "" {
		return nil, badPayload("btg payload missing charge id")
	}
	return &models.Event{
		Provider:        models.ProviderBTG,
		EventID:         payload.Data.ID,
		EventType:       payload.Event,
		ReferenceID:     payload.Data.ID,
		SignatureHeader: "Authorization",
		Signature:       header.Get("Authorization"),
		RawBody:         body,
		ReceivedAt:      receivedAt,
	}, nil
}

func (b BTG) Verify(event *models.Event) error {
	if b.Secret == "" {
		return unauthenticated("btg webhook secret not configured")
	}
	token, ok := strings.CutPrefix(event.Signature, "Bearer ")
	if !ok {
		return unauthenticated("missing btg bearer token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(b.Secret)) != 1 {
		return unauthenticated("invalid btg bearer token")
	}
	return nil
}

// Asaas deliveries authenticate with an access token header.
type Asaas struct {
	Token string
}

func (Asaas) Name() string { return models.ProviderAsaas }

type asaasPayload struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payment struct {
		ID string `json:"id"`
	} `json:"payment"`
}

func (Asaas) Normalize(header http.Header, body []byte, receivedAt time.Time) (*models.Event, error) {
	var payload asaasPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, badPayload("malformed asaas payload")
	}
	eventID := payload.ID
	if eventID == "" {
		eventID = payload.Payment.ID
	}
	if eventID == "" {
		return nil, badPayload("asaas payload missing event id")
	}
	return &models.Event{
		Provider:        models.ProviderAsaas,
		EventID:         eventID,
		EventType:       payload.Event,
		ReferenceID:     payload.Payment.ID,
		SignatureHeader: "asaas-access-token",
		Signature:       header.Get("asaas-access-token"),
		RawBody:         body,
		ReceivedAt:      receivedAt,
	}, nil
}

func (a Asaas) Verify(event *models.Event) error {
	if a.Token == "" {
		return unauthenticated("asaas webhook token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(event.Signature), []byte(a.Token)) != 1 {
		return unauthenticated("invalid asaas access token")
	}
	return nil
}
