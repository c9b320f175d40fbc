/**
 * @description
 * Transaction model and amount helpers. A Transaction mirrors a row in the
 * backend's `transactions` table. For profile-to-profile transfers the row
 * is created by the backend's `transfer_money` procedure; for transfers to
 * Zim accounts the client inserts the audit row itself because no shared
 * procedure spans the two account spaces.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction statuses as stored in the `transactions` table.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// Transaction is an immutable record of a completed transfer.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	SenderID    uuid.UUID       `json:"sender_id"`
	ReceiverID  uuid.UUID       `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransferResult is the structured result of the backend's `transfer_money`
// procedure. The procedure reports business failures (insufficient funds,
// unknown recipient) in-band rather than as query errors.
type TransferResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RoundAmount applies the service-wide money rounding policy: two decimal
// places, half away from zero. Every balance mutation goes through this so
// stored balances never accumulate sub-cent drift.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatUSD renders an amount the way the ZimPay UI shows it, e.g. "$1.00"
// or "$1,000.00".
func FormatUSD(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
