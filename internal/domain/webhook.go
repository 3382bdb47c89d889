/**
 * @description
 * Billstack webhook envelope. The gateway POSTs a notification when funds
 * land on a virtual account; only the account number, the amount and the
 * creation timestamp matter to reconciliation. The raw payload is persisted
 * with the settled payment for audit.
 */
package domain

import "encoding/json"

// GatewayNotification is the inbound webhook body.
type GatewayNotification struct {
	Event string                  `json:"event"`
	Data  GatewayNotificationData `json:"data"`
}

// GatewayNotificationData carries the payment facts.
type GatewayNotificationData struct {
	Amount    float64                `json:"amount"`
	CreatedAt string                 `json:"created_at"`
	Account   GatewayAccount         `json:"account"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// GatewayAccount identifies the virtual account that received funds.
type GatewayAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// GatewayMeta is the opaque payload attached to a settled payment.
type GatewayMeta = json.RawMessage
