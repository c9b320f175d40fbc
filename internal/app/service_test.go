package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
	"github.com/zimpay/transfer-service/internal/store"
)

// fakeRepo stubs the repository for service tests. Only the methods a test
// assigns are callable; anything else panics through the embedded nil
// interface, which is the point.
type fakeRepo struct {
	store.Repository

	findProfileByID           func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	findProfileByEmail        func(ctx context.Context, email string) (*domain.Profile, error)
	findProfileByUsername     func(ctx context.Context, username string) (*domain.Profile, error)
	findProfileByPhoneFormats func(ctx context.Context, formats []string) (*domain.Profile, error)
	searchProfilesByUsername  func(ctx context.Context, fragment string, limit int) ([]domain.Profile, error)
	findZimAccountByUsername  func(ctx context.Context, username string) (*domain.ZimAccount, error)
	updateZimAccountBalance   func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	updateProfileBalance      func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	insertTransaction         func(ctx context.Context, tx *domain.Transaction) error
	transferMoney             func(ctx context.Context, senderID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error)
}

func (f *fakeRepo) FindProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return f.findProfileByID(ctx, id)
}

func (f *fakeRepo) FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return f.findProfileByEmail(ctx, email)
}

func (f *fakeRepo) FindProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return f.findProfileByUsername(ctx, username)
}

func (f *fakeRepo) FindProfileByPhoneFormats(ctx context.Context, formats []string) (*domain.Profile, error) {
	return f.findProfileByPhoneFormats(ctx, formats)
}

func (f *fakeRepo) SearchProfilesByUsername(ctx context.Context, fragment string, limit int) ([]domain.Profile, error) {
	return f.searchProfilesByUsername(ctx, fragment, limit)
}

func (f *fakeRepo) FindZimAccountByUsername(ctx context.Context, username string) (*domain.ZimAccount, error) {
	return f.findZimAccountByUsername(ctx, username)
}

func (f *fakeRepo) UpdateZimAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return f.updateZimAccountBalance(ctx, id, balance)
}

func (f *fakeRepo) UpdateProfileBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return f.updateProfileBalance(ctx, id, balance)
}

func (f *fakeRepo) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return f.insertTransaction(ctx, tx)
}

func (f *fakeRepo) TransferMoney(ctx context.Context, senderID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error) {
	return f.transferMoney(ctx, senderID, receiverUsername, amount, description)
}

func newTestService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, time.Second, time.Millisecond, decimal.Zero, 0)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateAmount(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	balance := dec("1000.00")

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"valid integer", "50", nil},
		{"valid two decimals", "999.99", nil},
		{"exactly minimum", "1.00", nil},
		{"exactly balance", "1000.00", nil},
		{"not a number", "abc", domain.ErrInvalidAmount},
		{"empty", "", domain.ErrInvalidAmount},
		{"zero", "0", domain.ErrInvalidAmount},
		{"negative", "-5", domain.ErrInvalidAmount},
		{"three decimals", "10.123", domain.ErrTooManyDecimals},
		{"over balance", "1000.01", domain.ErrInsufficientBalance},
		{"below minimum", "0.50", domain.ErrBelowMinimum},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			amount, err := svc.ValidateAmount(tc.raw, balance)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateAmount(%q): err = %v, want %v", tc.raw, err, tc.wantErr)
			}
			if tc.wantErr == nil && amount.IsZero() {
				t.Fatalf("ValidateAmount(%q): got zero amount on success", tc.raw)
			}
		})
	}
}

func TestValidateAmountDecimalCheckRunsBeforeBalanceCheck(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	// Over balance AND too many decimals: the format error wins.
	if _, err := svc.ValidateAmount("2000.123", dec("1000.00")); !errors.Is(err, domain.ErrTooManyDecimals) {
		t.Fatalf("err = %v, want ErrTooManyDecimals", err)
	}
}

func TestValidateNote(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	long := make([]byte, DefaultMaxNoteLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := svc.ValidateNote("groceries"); err != nil {
		t.Fatalf("short note rejected: %v", err)
	}
	if err := svc.ValidateNote(string(long)); !errors.Is(err, domain.ErrNoteTooLong) {
		t.Fatalf("err = %v, want ErrNoteTooLong", err)
	}
}

func TestExecuteTransferViaBackendProcedure(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()
	var gotUsername string
	var gotAmount decimal.Decimal

	repo := &fakeRepo{
		transferMoney: func(ctx context.Context, sID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error) {
			if sID != senderID {
				t.Fatalf("sender id = %s, want %s", sID, senderID)
			}
			gotUsername = receiverUsername
			gotAmount = amount
			return &domain.TransferResult{Success: true}, nil
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("1000.00")}
	recipient := &domain.Recipient{Profile: domain.Profile{ID: receiverID, Username: "bob"}}

	tx, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("25.50"), "lunch")
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if gotUsername != "bob" {
		t.Fatalf("receiver username = %q, want %q", gotUsername, "bob")
	}
	if !gotAmount.Equal(dec("25.50")) {
		t.Fatalf("amount = %s, want 25.50", gotAmount)
	}
	if tx.Status != domain.TransactionCompleted {
		t.Fatalf("status = %q, want %q", tx.Status, domain.TransactionCompleted)
	}
	if tx.Description == nil || *tx.Description != "lunch" {
		t.Fatalf("description = %v, want lunch", tx.Description)
	}
}

func TestExecuteTransferBackendRejection(t *testing.T) {
	repo := &fakeRepo{
		transferMoney: func(ctx context.Context, senderID uuid.UUID, receiverUsername string, amount decimal.Decimal, description *string) (*domain.TransferResult, error) {
			return &domain.TransferResult{Success: false, Error: "insufficient balance"}, nil
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: uuid.New(), Balance: dec("10.00")}
	recipient := &domain.Recipient{Profile: domain.Profile{ID: uuid.New(), Username: "bob"}}

	_, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("5.00"), "")
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
}

func TestExecuteZimTransferHappyPath(t *testing.T) {
	senderID := uuid.New()
	acctID := uuid.New()
	var senderBalance decimal.Decimal
	var acctBalance decimal.Decimal
	var inserted *domain.Transaction

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: senderID, Balance: dec("1000.00")}, nil
		},
		updateProfileBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			senderBalance = balance
			return nil
		},
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			return &domain.ZimAccount{ID: acctID, Username: username, Balance: dec("200.00")}, nil
		},
		updateZimAccountBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			acctBalance = balance
			return nil
		},
		insertTransaction: func(ctx context.Context, tx *domain.Transaction) error {
			inserted = tx
			return nil
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("1000.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: acctID, Username: "zm-bob"},
		IsZimAccount: true,
	}

	tx, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if !senderBalance.Equal(dec("950.00")) {
		t.Fatalf("sender balance = %s, want 950.00", senderBalance)
	}
	if !acctBalance.Equal(dec("250.00")) {
		t.Fatalf("zim balance = %s, want 250.00", acctBalance)
	}
	if inserted == nil {
		t.Fatal("audit transaction never inserted")
	}
	if tx.Description == nil || *tx.Description != "Transfer to zm-bob" {
		t.Fatalf("description = %v, want auto description", tx.Description)
	}
}

func TestExecuteZimTransferCreditFailureRestoresSender(t *testing.T) {
	senderID := uuid.New()
	var balanceWrites []decimal.Decimal

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: senderID, Balance: dec("1000.00")}, nil
		},
		updateProfileBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			balanceWrites = append(balanceWrites, balance)
			return nil
		},
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			return &domain.ZimAccount{ID: uuid.New(), Username: username, Balance: dec("0.00")}, nil
		},
		updateZimAccountBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			return errors.New("connection reset")
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("1000.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: uuid.New(), Username: "zm-bob"},
		IsZimAccount: true,
	}

	_, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if !errors.Is(err, domain.ErrTransferFailedRestored) {
		t.Fatalf("err = %v, want ErrTransferFailedRestored", err)
	}
	if len(balanceWrites) != 2 {
		t.Fatalf("balance writes = %d, want debit then restore", len(balanceWrites))
	}
	if !balanceWrites[0].Equal(dec("950.00")) {
		t.Fatalf("debit wrote %s, want 950.00", balanceWrites[0])
	}
	if !balanceWrites[1].Equal(dec("1000.00")) {
		t.Fatalf("restore wrote %s, want 1000.00", balanceWrites[1])
	}
}

func TestExecuteZimTransferRestoreFailure(t *testing.T) {
	senderID := uuid.New()
	writes := 0

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: senderID, Balance: dec("100.00")}, nil
		},
		updateProfileBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			writes++
			if writes > 1 {
				return errors.New("connection reset")
			}
			return nil
		},
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("100.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: uuid.New(), Username: "zm-bob"},
		IsZimAccount: true,
	}

	_, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if !errors.Is(err, domain.ErrTransferFailedUnrestored) {
		t.Fatalf("err = %v, want ErrTransferFailedUnrestored", err)
	}
}

func TestExecuteZimTransferDebitFailureSkipsCredit(t *testing.T) {
	senderID := uuid.New()

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: senderID, Balance: dec("100.00")}, nil
		},
		updateProfileBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			return errors.New("connection reset")
		},
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			t.Fatal("credit path reached after failed debit")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("100.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: uuid.New(), Username: "zm-bob"},
		IsZimAccount: true,
	}

	_, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	if errors.Is(err, domain.ErrTransferFailedRestored) || errors.Is(err, domain.ErrTransferFailedUnrestored) {
		t.Fatalf("err = %v, compensation ran for a debit that never happened", err)
	}
}

func TestExecuteZimTransferRechecksFreshBalance(t *testing.T) {
	senderID := uuid.New()

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			// Balance dropped since the workflow validated it.
			return &domain.Profile{ID: senderID, Balance: dec("10.00")}, nil
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("1000.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: uuid.New(), Username: "zm-bob"},
		IsZimAccount: true,
	}

	_, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestExecuteZimTransferAuditInsertFailureDoesNotFailTransfer(t *testing.T) {
	senderID := uuid.New()

	repo := &fakeRepo{
		findProfileByID: func(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: senderID, Balance: dec("100.00")}, nil
		},
		updateProfileBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			return nil
		},
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			return &domain.ZimAccount{ID: uuid.New(), Username: username, Balance: dec("0.00")}, nil
		},
		updateZimAccountBalance: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			return nil
		},
		insertTransaction: func(ctx context.Context, tx *domain.Transaction) error {
			return errors.New("row level security violation")
		},
	}
	svc := newTestService(repo)

	sender := &domain.Profile{ID: senderID, Balance: dec("100.00")}
	recipient := &domain.Recipient{
		Profile:      domain.Profile{ID: uuid.New(), Username: "zm-bob"},
		IsZimAccount: true,
	}

	tx, err := svc.ExecuteTransfer(context.Background(), sender, recipient, dec("50.00"), "")
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if tx == nil || tx.Status != domain.TransactionCompleted {
		t.Fatalf("transfer did not complete despite successful money movement")
	}
}
