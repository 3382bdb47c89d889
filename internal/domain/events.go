/**
 * @description
 * Events published to the payment_events exchange for out-of-band handling
 * (the notification channel consumes these; it is not part of this service).
 */
package domain

import "time"

// Routing keys on the payment_events exchange.
const (
	EventPaymentSettled   = "payment.settled"
	EventPaymentMismatch  = "payment.mismatch"
	EventPaymentTimeout   = "payment.timeout"
	EventPaymentCancelled = "payment.cancelled"
)

// PaymentSettledEvent is published after a successful settlement commits.
type PaymentSettledEvent struct {
	EventID       string    `json:"event_id"`
	TxID          string    `json:"tx_id"`
	AccountNumber string    `json:"account_number"`
	Regno         string    `json:"regno"`
	Amount        float64   `json:"amount"`
	SettledAmount float64   `json:"settled_amount"`
	UniversityID  string    `json:"university_id"`
	SettledAt     time.Time `json:"settled_at"`
}

// PaymentMismatchEvent is published when a reported amount does not match
// the expected charge. Direction is "underpay" or "overpay"; Delta is the
// absolute difference awaiting manual resolution.
type PaymentMismatchEvent struct {
	EventID       string       `json:"event_id"`
	AccountNumber string       `json:"account_number"`
	Regno         string       `json:"regno"`
	Direction     string       `json:"direction"`
	Delta         float64      `json:"delta"`
	Expected      float64      `json:"expected"`
	Reported      float64      `json:"reported"`
	Class         ClassDetails `json:"class"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// PaymentReclaimedEvent is published when a pending payment is timed out by
// the sweeper or cancelled by the payer.
type PaymentReclaimedEvent struct {
	EventID       string    `json:"event_id"`
	TxID          string    `json:"tx_id"`
	AccountNumber string    `json:"account_number"`
	Regno         string    `json:"regno"`
	Amount        float64   `json:"amount"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}
