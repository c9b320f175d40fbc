/**
 * @description
 * The error taxonomy for the recipient-resolution and transfer workflow.
 * Every failure the workflow can surface is either a sentinel error or a
 * typed error carrying data (a suggested correction, a suggestions list).
 * All of them render as inline, human-readable text; none are fatal — the
 * workflow stays on its current step so the user can amend input and retry.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Search method labels used to scope not-found messages.
const (
	SearchByUsername   = "username"
	SearchByEmail      = "email"
	SearchByPhone      = "phone"
	SearchByZimAccount = "zim_account"
)

var (
	// Resolution errors.
	ErrSearchTooShort = errors.New("enter at least 2 characters to search")
	ErrSelfTransfer   = errors.New("you cannot send money to yourself")
	ErrSearchTimeout  = errors.New("recipient search timed out, please try again")
	ErrBackend        = errors.New("something went wrong talking to the server")

	// Amount / entry validation errors.
	ErrNoRecipient         = errors.New("please find a valid recipient first")
	ErrInvalidAmount       = errors.New("please enter a valid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("minimum transfer amount is $1")
	ErrTooManyDecimals     = errors.New("amount can have at most 2 decimal places")
	ErrNoteTooLong         = errors.New("note is too long")

	// Transfer execution errors.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrTransferFailedRestored means the Zim-account credit step failed and
	// the sender's debit was successfully reversed. Balances are intact.
	ErrTransferFailedRestored = errors.New("transfer failed, your balance has been restored")
	// ErrTransferFailedUnrestored means a compensating update also failed and
	// the sender is left under-credited until reconciled. The debit call is
	// treated as all-or-nothing, so this only arises when the reversal itself
	// errors.
	ErrTransferFailedUnrestored = errors.New("transfer failed and the balance could not be restored, contact support")
)

// NotFoundError reports a miss, scoped to the collection that was searched so
// a Zim-account miss never reads like a profile miss.
type NotFoundError struct {
	Method string
}

func (e *NotFoundError) Error() string {
	switch e.Method {
	case SearchByZimAccount:
		return "Zim account not found. Check the account name."
	case SearchByEmail:
		return "No ZimPay account found with that email address."
	case SearchByPhone:
		return "No ZimPay account found with that phone number."
	default:
		return "Recipient not found. Check the username or phone number."
	}
}

// InvalidFormatError rejects a username-shaped input that contains characters
// usernames cannot hold. When a cleaned-up form still makes sense it is
// offered as a suggestion.
type InvalidFormatError struct {
	Suggestion string
}

func (e *InvalidFormatError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("that doesn't look like a valid username, did you mean %q?", e.Suggestion)
	}
	return "that doesn't look like a valid username"
}

// AmbiguousError carries near-miss usernames when no exact match exists.
// It is an error, never a resolution: the caller shows the suggestions and
// keeps the recipient unset.
type AmbiguousError struct {
	Suggestions []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("no exact match, did you mean: %s?", strings.Join(e.Suggestions, ", "))
}
