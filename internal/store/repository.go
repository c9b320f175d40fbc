/**
 * @description
 * This file defines the `Repository` interface: the single backend-access
 * capability (query, mutate, insert, remote procedure) the resolver and the
 * transfer workflow are constructed with. The hosted backend owns all rows;
 * this interface is the only way the service touches them, and tests
 * substitute fake implementations of it.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid, github.com/shopspring/decimal: id and money types.
 * - internal/domain: the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrZimAccountNotFound = errors.New("zim account not found")
)

// Repository defines the set of backend operations the service depends on.
type Repository interface {
	// Profile queries.
	FindProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	FindProfileByUsername(ctx context.Context, username string) (*domain.Profile, error)
	// FindProfileByPhoneFormats matches any of the given storage shapes of one
	// phone number, so historical inconsistent formats all resolve.
	FindProfileByPhoneFormats(ctx context.Context, formats []string) (*domain.Profile, error)
	// SearchProfilesByUsername is a case-insensitive substring search used
	// only to produce "did you mean" suggestions, never a resolution.
	SearchProfilesByUsername(ctx context.Context, fragment string, limit int) ([]domain.Profile, error)

	// Zim account queries and balance mutation.
	FindZimAccountByUsername(ctx context.Context, username string) (*domain.ZimAccount, error)
	UpdateZimAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// Profile balance mutation (Zim-transfer debit and its compensation).
	UpdateProfileBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// Transaction log.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error)

	// TransferMoney invokes the backend's atomic transfer procedure. Business
	// failures come back in the TransferResult, not as an error.
	TransferMoney(ctx context.Context, senderID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error)
}
