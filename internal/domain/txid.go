/**
 * @description
 * Transaction id generation. A TxId is the last five digits of the payer's
 * registration number concatenated with a base62 encoding of the creation
 * timestamp in milliseconds, making ids unique with overwhelming probability
 * and roughly time-ordered within a payer.
 */
package domain

import (
	"strings"
	"time"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ToBase62 encodes a non-negative integer in base62.
func ToBase62(n int64) string {
	if n == 0 {
		return "0"
	}
	var b strings.Builder
	var digits []byte
	for n > 0 {
		digits = append(digits, base62Alphabet[n%62])
		n /= 62
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
	}
	return b.String()
}

// NewTransactionID derives a TxId from the payer's regno and the given time.
func NewTransactionID(regno string, at time.Time) string {
	var numeric strings.Builder
	for _, r := range regno {
		if r >= '0' && r <= '9' {
			numeric.WriteRune(r)
		}
	}
	digits := numeric.String()
	if len(digits) > 5 {
		digits = digits[len(digits)-5:]
	}
	return digits + ToBase62(at.UnixMilli())
}
