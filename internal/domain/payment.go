/**
 * @description
 * Core payment domain models for the collections service: virtual accounts
 * (NUBANs), pending payment intents, settled transactions and the
 * company-wide metrics aggregate.
 *
 * A NUBAN is a one-time payment destination pulled from a shared pool and
 * bound to exactly one pending payment at a time. The pending payment row,
 * keyed by the account number, is the single source of truth for what a
 * NUBAN currently represents.
 */
package domain

import "time"

// Payment lifecycle states for a pending payment.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSuccess   = "success"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusTimeout   = "timeout"
)

// PaymentExpiryWindow is how long a payer has to fund an allocated NUBAN.
const PaymentExpiryWindow = 15 * time.Minute

// OrphanRecoveryWindow bounds how far back the orphan detector will match
// archived or pending records against late-arriving gateway funds.
const OrphanRecoveryWindow = 24 * time.Hour

// NUBAN is a virtual bank account number from the allocation pool.
type NUBAN struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankName      string `json:"bankName"`
}

// CartItem is one due inside a payment intent's cart.
type CartItem struct {
	DueID     string  `json:"dueId"`
	DueName   string  `json:"dueName"`
	DueAmount float64 `json:"dueAmount"`
	DueBatch  string  `json:"dueBatch"`
}

// PendingPayment binds an expected amount, payer and cart to an allocated
// NUBAN until settlement, cancellation or timeout. While its status is
// pending the referenced NUBAN must not be available for allocation.
type PendingPayment struct {
	AccountNumber  string     `json:"accountNumber"`
	TxID           string     `json:"TxId"`
	Amount         float64    `json:"amount"`
	Cart           []CartItem `json:"cart"`
	AccountDetails NUBAN      `json:"accountDetails"`
	Regno          string     `json:"regno"`
	StudentName    string     `json:"studentName"`
	UniversityID   string     `json:"universityId"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
}

// PaymentIntent is what the allocator returns to the portal for display.
type PaymentIntent struct {
	AccountNumber string    `json:"accountNumber"`
	AccountName   string    `json:"accountName"`
	BankName      string    `json:"bankName"`
	Amount        float64   `json:"amount"`
	ExpiresIn     time.Time `json:"expiresIn"`
	Delay         int       `json:"delay"`
	TxID          string    `json:"TxId"`
}

// Transaction is the immutable record written (once, globally and under the
// class) when a pending payment settles.
type Transaction struct {
	TxID          string          `json:"TxId"`
	Amount        float64         `json:"amount"`
	SettledAmount float64         `json:"settledAmount"`
	Charge        float64         `json:"charge"`
	Regno         string          `json:"regno"`
	SubjectName   string          `json:"subjectName"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Class         ClassDetails    `json:"class"`
	PrePayment    *PendingPayment `json:"prePayment,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CompanyMetrics is the singleton aggregate bumped on every settlement.
type CompanyMetrics struct {
	TotalTransactions int64     `json:"total"`
	Volume            float64   `json:"volume"`
	CollectiveCharge  float64   `json:"collectiveCharge"`
	GatewayRemit      float64   `json:"gatewayRemit"`
	Revenue           float64   `json:"revenue"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// OrphanCheckResult reports whether a NUBAN+amount pair matches a record
// abandoned by the main flow (timed out or still pending) within the
// recovery window.
type OrphanCheckResult struct {
	Orphaned bool            `json:"orphaned"`
	Record   *PendingPayment `json:"record,omitempty"`
}
