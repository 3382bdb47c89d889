/**
 * @description
 * Platform fee schedule. Two distinct fee legs exist in the flow:
 *
 *   - GetCharge: the forward fee quoted to a payer when a due passes its
 *     charge on (1.2% of the amount, capped at 250 naira).
 *   - GetUnCharge: the fee recovered from the gross amount the gateway
 *     reports during settlement. Its rate is |(0.012)^2 - 0.012|, which
 *     unwinds the blended fee baked into the charged amount.
 *
 * Both legs round to 2 decimal places and must stay bit-compatible with the
 * gateway contract: GetUnCharge(5000) == 59.29.
 */
package domain

import "math"

const (
	chargeRate   = 0.012
	chargeCap    = 250.0
	unChargeRate = 0.0118577075

	// Revenue split applied to each transaction's charge.
	GatewayPercentage = 0.41666
	RevenuePercentage = 1 - GatewayPercentage
)

// Round2 rounds a naira amount to 2 decimal places.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// GetCharge returns the forward platform fee for charging a payer.
// Negative or NaN amounts yield 0.
func GetCharge(amount float64) float64 {
	if math.IsNaN(amount) || amount < 0 {
		return 0
	}
	charge := amount * chargeRate
	if charge > chargeCap {
		charge = chargeCap
	}
	return Round2(charge)
}

// GetUnCharge returns the platform's share recovered from the gross amount
// received during settlement.
func GetUnCharge(amount float64) float64 {
	if math.IsNaN(amount) || amount < 0 {
		return 0
	}
	return Round2(amount * unChargeRate)
}
