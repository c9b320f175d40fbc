/**
 * @description
 * The send-money workflow: a three-step wizard (entry -> confirm -> success)
 * driving recipient search, amount validation and transfer execution. One
 * Workflow instance lives for one send-money session; closing or finishing
 * the session discards it.
 *
 * Transitions:
 * - entry -> confirm: guarded by a resolved recipient and a valid amount.
 * - confirm -> entry: Back, preserving every field.
 * - confirm -> success: transfer executed; terminal.
 * - confirm -> confirm: failed execution, error shown inline.
 */

package app

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
)

// Step identifies the workflow's current screen.
type Step int

const (
	StepEntry Step = iota
	StepConfirm
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepEntry:
		return "entry"
	case StepConfirm:
		return "confirm"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Workflow holds the transient state of one send-money session. It is safe
// for concurrent use because debounced search completions arrive on a timer
// goroutine.
type Workflow struct {
	service  *Service
	sender   domain.Profile
	searcher *Searcher
	onDone   func()

	mu        sync.Mutex
	step      Step
	input     string
	recipient *domain.Recipient
	searchErr error
	amount    string
	note      string
	confirmed decimal.Decimal
}

// NewWorkflow opens a send-money session for the signed-in sender. onDone is
// invoked by Done so the caller can refresh balances and close the session;
// it may be nil.
func (s *Service) NewWorkflow(sender domain.Profile, onDone func()) *Workflow {
	w := &Workflow{
		service: s,
		sender:  sender,
		onDone:  onDone,
		step:    StepEntry,
	}
	w.searcher = s.NewRecipientSearcher(sender.ID, w.applySearch)
	return w
}

// SetRecipientInput records a keystroke: the previous candidate is
// discarded immediately and a debounced search is scheduled once the input
// is long enough to be worth resolving.
func (w *Workflow) SetRecipientInput(text string) {
	w.mu.Lock()
	w.input = text
	w.recipient = nil
	w.searchErr = nil
	w.mu.Unlock()

	if utf8.RuneCountInString(strings.TrimSpace(text)) >= 2 {
		w.searcher.Schedule(text)
	} else {
		w.searcher.Cancel()
	}
}

// Search runs the explicit search action on the current input, bypassing
// the debounce delay.
func (w *Workflow) Search() {
	w.mu.Lock()
	input := w.input
	w.mu.Unlock()
	w.searcher.SearchNow(input)
}

// applySearch installs a completed, still-current search outcome. Results
// for input that no longer matches what the user sees are dropped.
func (w *Workflow) applySearch(outcome SearchOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepEntry || outcome.Input != w.input {
		return
	}
	w.recipient = outcome.Recipient
	w.searchErr = outcome.Err
}

// SetAmount records the raw amount text. Validation happens on Continue.
func (w *Workflow) SetAmount(amount string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.amount = amount
}

// SetNote records the optional note.
func (w *Workflow) SetNote(note string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.note = note
}

// Continue validates the entry step and advances to confirmation. On any
// validation failure the workflow stays on entry and the error is returned
// for inline display.
func (w *Workflow) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepEntry {
		return nil
	}
	if w.recipient == nil {
		return domain.ErrNoRecipient
	}
	if err := w.service.ValidateNote(w.note); err != nil {
		return err
	}
	amount, err := w.service.ValidateAmount(w.amount, w.sender.Balance)
	if err != nil {
		return err
	}

	w.confirmed = amount
	w.step = StepConfirm
	return nil
}

// Back returns from confirmation to entry, preserving every field.
func (w *Workflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepConfirm {
		w.step = StepEntry
	}
}

// Confirm executes the transfer. On success the workflow reaches its
// terminal step; on failure it stays on confirm with the error surfaced for
// inline display so the user can retry or go back.
func (w *Workflow) Confirm(ctx context.Context) (*domain.Transaction, error) {
	w.mu.Lock()
	if w.step != StepConfirm || w.recipient == nil {
		w.mu.Unlock()
		return nil, domain.ErrNoRecipient
	}
	sender := w.sender
	recipient := *w.recipient
	amount := w.confirmed
	note := w.note
	w.mu.Unlock()

	tx, err := w.service.ExecuteTransfer(ctx, &sender, &recipient, amount, note)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.step = StepSuccess
	w.mu.Unlock()
	return tx, nil
}

// Done finishes a successful session, notifying the caller to refresh
// balances and close.
func (w *Workflow) Done() {
	w.mu.Lock()
	done := w.step == StepSuccess
	w.mu.Unlock()
	if done && w.onDone != nil {
		w.onDone()
	}
}

// Step returns the workflow's current step.
func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Recipient returns the current resolved candidate, if any.
func (w *Workflow) Recipient() *domain.Recipient {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recipient
}

// SearchError returns the most recent search failure, if any.
func (w *Workflow) SearchError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.searchErr
}

// AmountDisplay renders the confirmed amount the way the confirmation and
// success screens show it, e.g. "$1.00".
func (w *Workflow) AmountDisplay() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.FormatUSD(w.confirmed)
}

// Note returns the current note text.
func (w *Workflow) Note() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.note
}
