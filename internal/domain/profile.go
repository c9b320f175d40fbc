/**
 * @description
 * This file defines the core domain models for the transfer-service.
 * These structs represent the entities held in the hosted backend's tables
 * (`profiles`, `zim_accounts`) and the transient records the transfer
 * workflow works with.
 *
 * @notes
 * - Balances and amounts are `decimal.Decimal` values. The backend stores
 *   them as Postgres numerics and the transfer rules operate on exact
 *   2-decimal currency values, so floats are never used for money.
 * - A `Recipient` is a profile-shaped view: Zim accounts are mapped into it
 *   with empty name/email/phone fields so the rest of the workflow does not
 *   care which account space the match came from.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ZimAccountPrefix marks recipient input that addresses the Zim ledger
// account space rather than a ZimPay profile.
const ZimAccountPrefix = "zm-"

// Profile is a row in the backend's `profiles` table: the identity and
// balance record for one signed-up user.
type Profile struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	FullName    string          `json:"full_name"`
	Username    string          `json:"username"`
	PhoneNumber string          `json:"phone_number"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ZimAccount is a row in the backend's `zim_accounts` table. Zim accounts
// live in a separate subsystem with its own balances; they are addressed
// by a `zm-` prefixed username and cannot be reached through the backend's
// atomic transfer procedure.
type ZimAccount struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recipient is a resolved, eligible transfer target. IsZimAccount tells the
// workflow which execution path applies: the backend's atomic procedure for
// profiles, or the sequential debit/credit path for Zim accounts.
type Recipient struct {
	Profile
	IsZimAccount bool `json:"is_zim_account"`
}

// RecipientFromZimAccount maps a Zim account into the profile-shaped view
// the workflow displays. Name, email and phone have no Zim-side equivalent
// and stay empty.
func RecipientFromZimAccount(acct *ZimAccount) *Recipient {
	return &Recipient{
		Profile: Profile{
			ID:       acct.ID,
			Username: acct.Username,
			FullName: "Zim Account",
			Balance:  acct.Balance,
		},
		IsZimAccount: true,
	}
}

// HasZimAccountPrefix reports whether recipient input addresses the Zim
// account space. The prefix match is case-insensitive.
func HasZimAccountPrefix(input string) bool {
	return len(input) >= len(ZimAccountPrefix) &&
		strings.EqualFold(input[:len(ZimAccountPrefix)], ZimAccountPrefix)
}
