/**
 * @description
 * Dues and lists. A due is a payable item configured by a class rep, carrying
 * aggregate payment statistics; a list is the non-monetary counterpart, a
 * membership roster students join without paying.
 */
package domain

import "time"

// Due types accepted at creation.
var DueTypes = []string{"textbook", "registration", "event", "other"}

// DueDetails is the rep-configured half of a due.
type DueDetails struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	Charge       float64   `json:"charge"`
	Description  string    `json:"description"`
	DueBatch     string    `json:"dueBatch"`
	IsCompulsory bool      `json:"isCompulsory"`
	IsOneTime    bool      `json:"isOneTime"`
	PassCharge   bool      `json:"passCharge"`
	Status       string    `json:"status"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DueData is the aggregate half of a due, mutated only by settlement.
// LastSerialNumber is a per-due monotonic counter; each successful payment
// record takes the next value with no gap or duplicate.
type DueData struct {
	TotalPayments    int64          `json:"totalPayments"`
	TotalAmount      float64        `json:"totalAmount"`
	LastPaymentDate  *time.Time     `json:"lastPaymentDate"`
	LastSerialNumber int64          `json:"lastSerialNumber"`
	PaymentHistory   []HistoryEntry `json:"paymentHistory"`
}

// HistoryEntry is one line of a due's payment history.
type HistoryEntry struct {
	Amount float64   `json:"amount"`
	Regno  string    `json:"regno"`
	Date   time.Time `json:"date"`
	TxID   string    `json:"TxId"`
}

// Due is a payable item belonging to a class.
type Due struct {
	ID      string     `json:"id"`
	Class   ClassScope `json:"-"`
	Details DueDetails `json:"dueDetails"`
	Data    DueData    `json:"dueData"`
}

// PaymentRecord is the per-payer record written under a due on settlement.
// At most one exists per (due, payer); a resubmission overwrites it.
type PaymentRecord struct {
	SerialNumber  int64     `json:"serialNumber"`
	Paid          bool      `json:"paid"`
	Amount        float64   `json:"amount"`
	SettledAmount float64   `json:"settledAmount"`
	DueBatch      string    `json:"dueBatch"`
	Regno         string    `json:"regno"`
	StudentName   string    `json:"studentName"`
	Receipt       bool      `json:"reciept"`
	PaidOn        time.Time `json:"paidOn"`
	TxID          string    `json:"TxId"`
}

// PortalDue is the payer-facing projection of a due, including whether the
// requesting student has already paid it. Total folds the forward charge in
// when the due passes its charge on to the payer.
type PortalDue struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Amount         float64        `json:"amount"`
	Total          float64        `json:"total"`
	Charge         float64        `json:"charge"`
	Description    string         `json:"description"`
	DueBatch       string         `json:"dueBatch"`
	IsCompulsory   bool           `json:"isCompulsory"`
	IsOneTime      bool           `json:"isOneTime"`
	Status         string         `json:"status"`
	Paid           bool           `json:"paid"`
	PaymentDetails *PaymentRecord `json:"paymentDetails,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ListDetails is the rep-configured half of a list.
type ListDetails struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ListBatch    string    `json:"listBatch"`
	IsCompulsory bool      `json:"isCompulsory"`
	Status       string    `json:"status"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// List is a membership roster belonging to a class.
type List struct {
	ID      string      `json:"id"`
	Class   ClassScope  `json:"-"`
	Details ListDetails `json:"listDetails"`
}

// ListRecord is a student's membership entry on a list.
type ListRecord struct {
	Regno     string    `json:"regno"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// PortalList is the payer-facing projection of a list.
type PortalList struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ListBatch    string    `json:"listBatch"`
	IsCompulsory bool      `json:"isCompulsory"`
	Status       string    `json:"status"`
	Present      bool      `json:"present"`
	CreatedAt    time.Time `json:"createdAt"`
}
