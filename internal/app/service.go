/**
 * @description
 * This file contains the core business logic for the transfer-service. The
 * `Service` struct owns amount validation and money movement, coordinating
 * between the backend repository and the message broker. Recipient
 * resolution lives in resolver.go and the step machine in workflow.go.
 *
 * Key features:
 * - Validates transfer amounts against the 2-decimal currency policy.
 * - Executes profile-to-profile transfers through the backend's atomic
 *   `transfer_money` procedure.
 * - Executes Zim-account transfers as a sequential debit/credit with a
 *   compensating re-credit of the sender when the credit step fails.
 * - Publishes transfer events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, fmt, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal: id and money types.
 * - internal/domain, internal/store, internal/phone: domain models, data
 *   access, and phone canonicalization.
 * - pkg/rabbitmq: event publishing.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
	"github.com/zimpay/transfer-service/internal/phone"
	"github.com/zimpay/transfer-service/internal/store"
	"github.com/zimpay/transfer-service/pkg/rabbitmq"
)

// Defaults applied when NewService receives zero values.
const (
	DefaultSearchTimeout  = 10 * time.Second
	DefaultSearchDebounce = 400 * time.Millisecond
	DefaultMaxNoteLength  = 200
)

// Service provides the core business logic for recipient resolution and
// money transfers.
type Service struct {
	repo           store.Repository
	phones         *phone.Normalizer
	eventProducer  rabbitmq.Publisher
	searchTimeout  time.Duration
	searchDebounce time.Duration
	minTransfer    decimal.Decimal
	maxNoteLength  int

	searchLimiter        SearchRateLimiter
	searchLimitPerMinute int
}

// NewService creates a new transfer service instance. The producer may be
// nil; event publishing then degrades to a no-op.
func NewService(repo store.Repository, phones *phone.Normalizer, producer rabbitmq.Publisher, searchTimeout, searchDebounce time.Duration, minTransfer decimal.Decimal, maxNoteLength int) *Service {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultRegion)
	}
	if searchTimeout <= 0 {
		searchTimeout = DefaultSearchTimeout
	}
	if searchDebounce <= 0 {
		searchDebounce = DefaultSearchDebounce
	}
	if minTransfer.IsZero() {
		minTransfer = decimal.New(1, 0)
	}
	if maxNoteLength <= 0 {
		maxNoteLength = DefaultMaxNoteLength
	}
	return &Service{
		repo:           repo,
		phones:         phones,
		eventProducer:  producer,
		searchTimeout:  searchTimeout,
		searchDebounce: searchDebounce,
		minTransfer:    minTransfer,
		maxNoteLength:  maxNoteLength,
	}
}

// GetProfile fetches the current state of a profile, balance included.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.repo.FindProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	return profile, nil
}

// ListTransactions returns the user's transaction history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListTransactionsForUser(ctx, userID, limit)
}

// ValidateAmount checks a raw amount string against the sender's balance and
// the transfer rules, returning the parsed amount on success.
func (s *Service) ValidateAmount(raw string, balance decimal.Decimal) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, domain.ErrTooManyDecimals
	}
	if amount.GreaterThan(balance) {
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	if amount.LessThan(s.minTransfer) {
		return decimal.Zero, domain.ErrBelowMinimum
	}
	return amount, nil
}

// ValidateNote bounds the optional transfer note.
func (s *Service) ValidateNote(note string) error {
	if len(note) > s.maxNoteLength {
		return domain.ErrNoteTooLong
	}
	return nil
}

// ExecuteTransfer moves money from the sender to a resolved recipient. For
// profile recipients the backend's atomic procedure does the work; for Zim
// accounts the sequential debit/credit path applies. The amount is rounded
// to 2 decimal places at this boundary regardless of upstream validation.
func (s *Service) ExecuteTransfer(ctx context.Context, sender *domain.Profile, recipient *domain.Recipient, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	amount = domain.RoundAmount(amount)

	var description *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		description = &trimmed
	}

	if recipient.IsZimAccount {
		return s.executeZimTransfer(ctx, sender, recipient, amount, description)
	}

	log.Printf("level=info component=transfer msg=\"invoking transfer procedure\" sender_id=%s receiver=%s amount=%s", sender.ID, recipient.Username, amount)

	result, err := s.repo.TransferMoney(ctx, sender.ID, recipient.Username, amount, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "transfer rejected by the server"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrTransferFailed, reason)
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		SenderID:    sender.ID,
		ReceiverID:  recipient.ID,
		Amount:      amount,
		Description: description,
		Status:      domain.TransactionCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	s.publishTransferCompleted(ctx, tx, false)
	return tx, nil
}

// executeZimTransfer runs the two-phase debit/credit sequence against the
// Zim account space. No shared atomic procedure spans both systems, so the
// debit is the commit point and a credit failure triggers a compensating
// re-credit of the sender before any error surfaces.
func (s *Service) executeZimTransfer(ctx context.Context, sender *domain.Profile, recipient *domain.Recipient, amount decimal.Decimal, description *string) (*domain.Transaction, error) {
	fresh, err := s.repo.FindProfileByID(ctx, sender.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	if fresh.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientBalance
	}

	preDebit := fresh.Balance
	debited := domain.RoundAmount(preDebit.Sub(amount))

	log.Printf("level=info component=transfer msg=\"debiting sender for zim transfer\" sender_id=%s amount=%s balance_before=%s", sender.ID, amount, preDebit)
	if err := s.repo.UpdateProfileBalance(ctx, sender.ID, debited); err != nil {
		// The debit never went through; nothing to compensate.
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	acct, err := s.repo.FindZimAccountByUsername(ctx, recipient.Username)
	if err != nil {
		return nil, s.compensateDebit(ctx, sender.ID, preDebit, err)
	}

	credited := domain.RoundAmount(acct.Balance.Add(amount))
	if err := s.repo.UpdateZimAccountBalance(ctx, acct.ID, credited); err != nil {
		return nil, s.compensateDebit(ctx, sender.ID, preDebit, err)
	}

	if description == nil {
		auto := "Transfer to " + recipient.Username
		description = &auto
	}
	tx := &domain.Transaction{
		ID:          uuid.New(),
		SenderID:    sender.ID,
		ReceiverID:  recipient.ID,
		Amount:      amount,
		Description: description,
		Status:      domain.TransactionCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	// Both balances have moved; the audit row is best effort and a failure
	// here must not undo completed money movement.
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		log.Printf("level=warn component=transfer msg=\"audit transaction insert failed after completed zim transfer\" sender_id=%s receiver_id=%s amount=%s err=%v", sender.ID, recipient.ID, amount, err)
	}

	s.publishTransferCompleted(ctx, tx, true)
	return tx, nil
}

// compensateDebit restores the sender's pre-debit balance after a failed
// credit step and reports the outcome of the whole sequence.
func (s *Service) compensateDebit(ctx context.Context, senderID uuid.UUID, preDebit decimal.Decimal, cause error) error {
	log.Printf("level=warn component=transfer msg=\"zim credit failed; restoring sender balance\" sender_id=%s balance=%s err=%v", senderID, preDebit, cause)
	if err := s.repo.UpdateProfileBalance(ctx, senderID, preDebit); err != nil {
		log.Printf("level=error component=transfer msg=\"CRITICAL: failed to restore sender balance after failed zim credit\" sender_id=%s balance=%s err=%v", senderID, preDebit, err)
		return fmt.Errorf("%w: %v", domain.ErrTransferFailedUnrestored, cause)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransferFailedRestored, cause)
}

func (s *Service) publishTransferCompleted(ctx context.Context, tx *domain.Transaction, zimAccount bool) {
	if s.eventProducer == nil {
		return
	}
	event := rabbitmq.TransferCompletedEvent{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Amount:        tx.Amount.StringFixed(2),
		ZimAccount:    zimAccount,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.eventProducer.PublishTransferCompleted(ctx, event); err != nil {
		log.Printf("level=warn component=transfer msg=\"transfer event publish failed\" transaction_id=%s err=%v", tx.ID, err)
	}
}
