/**
 * @description
 * This file implements the `Repository` interface against the hosted
 * backend's REST surface. Each method maps one logical operation onto a
 * table query, a balance patch, a transaction insert, or the
 * `transfer_money` stored procedure.
 *
 * @notes
 * - Single-row lookups select with limit=1 and translate an empty result
 *   into the package's not-found sentinels; callers never see raw HTTP
 *   detail for a plain miss.
 */

package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
	"github.com/zimpay/transfer-service/pkg/supaclient"
)

const (
	profilesTable     = "profiles"
	zimAccountsTable  = "zim_accounts"
	transactionsTable = "transactions"
)

// SupabaseRepository talks to the hosted backend through a supaclient.Client.
type SupabaseRepository struct {
	client *supaclient.Client
}

// NewSupabaseRepository creates a repository backed by the given client.
func NewSupabaseRepository(client *supaclient.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

func (r *SupabaseRepository) findOneProfile(ctx context.Context, filter url.Values) (*domain.Profile, error) {
	filter.Set("select", "*")
	filter.Set("limit", "1")

	var rows []domain.Profile
	if err := r.client.Select(ctx, profilesTable, filter, &rows); err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrProfileNotFound
	}
	return &rows[0], nil
}

func (r *SupabaseRepository) FindProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	filter := url.Values{}
	filter.Set("id", supaclient.Eq(id.String()))
	return r.findOneProfile(ctx, filter)
}

func (r *SupabaseRepository) FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	filter := url.Values{}
	filter.Set("email", supaclient.Eq(email))
	return r.findOneProfile(ctx, filter)
}

func (r *SupabaseRepository) FindProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	filter := url.Values{}
	filter.Set("username", supaclient.Eq(username))
	return r.findOneProfile(ctx, filter)
}

func (r *SupabaseRepository) FindProfileByPhoneFormats(ctx context.Context, formats []string) (*domain.Profile, error) {
	filter := url.Values{}
	filter.Set("phone_number", supaclient.In(formats))
	return r.findOneProfile(ctx, filter)
}

func (r *SupabaseRepository) SearchProfilesByUsername(ctx context.Context, fragment string, limit int) ([]domain.Profile, error) {
	filter := url.Values{}
	filter.Set("select", "*")
	filter.Set("username", supaclient.ILike(fragment))
	filter.Set("limit", strconv.Itoa(limit))

	var rows []domain.Profile
	if err := r.client.Select(ctx, profilesTable, filter, &rows); err != nil {
		return nil, fmt.Errorf("profile suggestion search failed: %w", err)
	}
	return rows, nil
}

func (r *SupabaseRepository) FindZimAccountByUsername(ctx context.Context, username string) (*domain.ZimAccount, error) {
	filter := url.Values{}
	filter.Set("select", "*")
	filter.Set("username", supaclient.Eq(username))
	filter.Set("limit", "1")

	var rows []domain.ZimAccount
	if err := r.client.Select(ctx, zimAccountsTable, filter, &rows); err != nil {
		return nil, fmt.Errorf("zim account lookup failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrZimAccountNotFound
	}
	return &rows[0], nil
}

func (r *SupabaseRepository) UpdateProfileBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	filter := url.Values{}
	filter.Set("id", supaclient.Eq(id.String()))

	patch := map[string]decimal.Decimal{"balance": balance}
	if err := r.client.Update(ctx, profilesTable, filter, patch); err != nil {
		return fmt.Errorf("profile balance update failed: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) UpdateZimAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	filter := url.Values{}
	filter.Set("id", supaclient.Eq(id.String()))

	patch := map[string]decimal.Decimal{"balance": balance}
	if err := r.client.Update(ctx, zimAccountsTable, filter, patch); err != nil {
		return fmt.Errorf("zim account balance update failed: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	row := map[string]interface{}{
		"id":          tx.ID,
		"sender_id":   tx.SenderID,
		"receiver_id": tx.ReceiverID,
		"amount":      tx.Amount,
		"description": tx.Description,
		"status":      tx.Status,
	}
	if err := r.client.Insert(ctx, transactionsTable, row); err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) ListTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	filter := url.Values{}
	filter.Set("select", "*")
	filter.Set("or", fmt.Sprintf("(sender_id.eq.%s,receiver_id.eq.%s)", userID, userID))
	filter.Set("order", "created_at.desc")
	filter.Set("limit", strconv.Itoa(limit))

	var rows []domain.Transaction
	if err := r.client.Select(ctx, transactionsTable, filter, &rows); err != nil {
		return nil, fmt.Errorf("transaction list failed: %w", err)
	}
	return rows, nil
}

func (r *SupabaseRepository) TransferMoney(ctx context.Context, senderID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error) {
	args := map[string]interface{}{
		"p_sender_id":           senderID,
		"p_receiver_identifier": receiverUsername,
		"p_amount":              amount,
		"p_description":         description,
	}

	var result domain.TransferResult
	if err := r.client.RPC(ctx, "transfer_money", args, &result); err != nil {
		return nil, fmt.Errorf("transfer procedure failed: %w", err)
	}
	return &result, nil
}
