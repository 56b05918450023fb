package models

import "time"

// Provider names. Each payment provider has its own receiving endpoint but
// every delivery funnels into the same pipeline.
const (
	ProviderStripe = "stripe"
	ProviderBTG    = "btg"
	ProviderAsaas  = "asaas"
)

// KnownProvider reports whether name is a registered payment provider.
func KnownProvider(name string) bool {
	switch name {
	case ProviderStripe, ProviderBTG, ProviderAsaas:
		return true
	}
	return false
}

// Event is the canonical shape every provider delivery is normalized into
// before verification, deduplication, and forwarding. RawBody is preserved
// byte for byte so the downstream processor can re-verify signatures itself.
type Event struct {
	Provider        string
	EventID         string
	EventType       string
	ReferenceID     string
	SignatureHeader string
	Signature       string
	RawBody         []byte
	ReceivedAt      time.Time
}

// Outcome classifies how a delivery was handled, for metrics and logs.
type Outcome string

const (
	OutcomeAcknowledged Outcome = "acknowledged"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUpstreamErr  Outcome = "upstream_error"
	OutcomeRejected     Outcome = "rejected"
)

// Result is the pipeline's verdict on one delivery. StatusCode and Body are
// only set for OutcomeUpstreamErr, where the provider must see the upstream
// response verbatim.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       []byte
}
