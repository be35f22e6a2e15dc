package normalizer

// These mirror the small slice of each Stripe object's JSON shape the
// normalizer actually needs. Decoding into local structs rather than
// stripe-go's own nested object types keeps this package isolated
// from stripe-go's object-graph churn across API versions — the
// envelope (stripeEvent) still comes from stripe-go's typed Event.

type stripePaymentIntent struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Created  int64             `json:"created"`
	Metadata map[string]string `json:"metadata"`
}

type stripeRefund struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Created       int64             `json:"created"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type stripeCharge struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Created       int64             `json:"created"`
	PaymentIntent string            `json:"payment_intent"`
	Refunded      bool              `json:"refunded"`
	Metadata      map[string]string `json:"metadata"`
}

// paymentIntentStatus maps Stripe's payment_intent status vocabulary
// onto the canonical closed set.
func paymentIntentStatus(stripeStatus string) (status string, ok bool) {
	switch stripeStatus {
	case "succeeded":
		return "succeeded", true
	case "canceled":
		return "failed", true
	case "processing", "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return "pending", true
	default:
		return "", false
	}
}

// chargeStatus maps a charge's status plus its refunded flag.
func chargeStatus(stripeStatus string, refunded bool) (status string, ok bool) {
	if refunded {
		return "refunded", true
	}
	switch stripeStatus {
	case "succeeded":
		return "succeeded", true
	case "failed":
		return "failed", true
	case "pending":
		return "pending", true
	default:
		return "", false
	}
}
