package app

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zimpay/transfer-service/internal/domain"
	"github.com/zimpay/transfer-service/internal/store"
)

func TestResolveRecipientTooShort(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	for _, input := range []string{"", " ", "a", "  a  "} {
		if _, err := svc.ResolveRecipient(context.Background(), input, uuid.New()); !errors.Is(err, domain.ErrSearchTooShort) {
			t.Fatalf("ResolveRecipient(%q): err = %v, want ErrSearchTooShort", input, err)
		}
	}
}

func TestResolveRecipientZimAccount(t *testing.T) {
	acctID := uuid.New()
	var gotLookup string
	repo := &fakeRepo{
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			gotLookup = username
			return &domain.ZimAccount{ID: acctID, Username: username, Balance: decimal.Zero}, nil
		},
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			t.Fatal("profile lookup reached for zim-prefixed input")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	recipient, err := svc.ResolveRecipient(context.Background(), "ZM-Wallet1", uuid.New())
	if err != nil {
		t.Fatalf("ResolveRecipient: %v", err)
	}
	if gotLookup != "zm-wallet1" {
		t.Fatalf("lookup used %q, want lowercased %q", gotLookup, "zm-wallet1")
	}
	if !recipient.IsZimAccount {
		t.Fatal("recipient not flagged as zim account")
	}
	if recipient.FullName != "Zim Account" {
		t.Fatalf("full name = %q, want %q", recipient.FullName, "Zim Account")
	}
}

func TestResolveRecipientZimAccountMiss(t *testing.T) {
	repo := &fakeRepo{
		findZimAccountByUsername: func(ctx context.Context, username string) (*domain.ZimAccount, error) {
			return nil, store.ErrZimAccountNotFound
		},
	}
	svc := newTestService(repo)

	_, err := svc.ResolveRecipient(context.Background(), "zm-ghost", uuid.New())
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if !strings.Contains(notFound.Error(), "Zim account") {
		t.Fatalf("message = %q, want the zim-specific message", notFound.Error())
	}
}

func TestResolveRecipientEmail(t *testing.T) {
	profileID := uuid.New()
	var gotEmail string
	repo := &fakeRepo{
		findProfileByEmail: func(ctx context.Context, email string) (*domain.Profile, error) {
			gotEmail = email
			return &domain.Profile{ID: profileID, Email: email, Username: "alice"}, nil
		},
	}
	svc := newTestService(repo)

	recipient, err := svc.ResolveRecipient(context.Background(), "Alice@Example.COM", uuid.New())
	if err != nil {
		t.Fatalf("ResolveRecipient: %v", err)
	}
	if gotEmail != "alice@example.com" {
		t.Fatalf("lookup used %q, want lowercased email", gotEmail)
	}
	if recipient.ID != profileID {
		t.Fatalf("recipient id = %s, want %s", recipient.ID, profileID)
	}
}

func TestResolveRecipientPhonePassesAllFormats(t *testing.T) {
	var gotFormats []string
	repo := &fakeRepo{
		findProfileByPhoneFormats: func(ctx context.Context, formats []string) (*domain.Profile, error) {
			gotFormats = formats
			return &domain.Profile{ID: uuid.New(), Username: "bob"}, nil
		},
	}
	svc := newTestService(repo)

	if _, err := svc.ResolveRecipient(context.Background(), "0773049503", uuid.New()); err != nil {
		t.Fatalf("ResolveRecipient: %v", err)
	}
	want := map[string]bool{"+263773049503": false, "0773049503": false}
	for _, f := range gotFormats {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("formats %v missing %q", gotFormats, f)
		}
	}
}

func TestResolveRecipientUsernameStripsLeadingAt(t *testing.T) {
	var gotUsername string
	repo := &fakeRepo{
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			gotUsername = username
			return &domain.Profile{ID: uuid.New(), Username: username}, nil
		},
	}
	svc := newTestService(repo)

	if _, err := svc.ResolveRecipient(context.Background(), "@Alice_1", uuid.New()); err != nil {
		t.Fatalf("ResolveRecipient: %v", err)
	}
	if gotUsername != "alice_1" {
		t.Fatalf("lookup used %q, want %q", gotUsername, "alice_1")
	}
}

func TestResolveRecipientUsernameInvalidCharsSuggestsCleanForm(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.ResolveRecipient(context.Background(), "ali ce!", uuid.New())
	var invalid *domain.InvalidFormatError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidFormatError", err)
	}
	if invalid.Suggestion != "alice" {
		t.Fatalf("suggestion = %q, want %q", invalid.Suggestion, "alice")
	}
}

func TestResolveRecipientUsernameMissWithSuggestions(t *testing.T) {
	repo := &fakeRepo{
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			return nil, store.ErrProfileNotFound
		},
		searchProfilesByUsername: func(ctx context.Context, fragment string, limit int) ([]domain.Profile, error) {
			if limit != suggestionLimit {
				t.Fatalf("limit = %d, want %d", limit, suggestionLimit)
			}
			return []domain.Profile{
				{ID: uuid.New(), Username: "jonathan"},
				{ID: uuid.New(), Username: "jones"},
			}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.ResolveRecipient(context.Background(), "jon", uuid.New())
	var ambiguous *domain.AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("err = %v, want AmbiguousError", err)
	}
	if !reflect.DeepEqual(ambiguous.Suggestions, []string{"jonathan", "jones"}) {
		t.Fatalf("suggestions = %v", ambiguous.Suggestions)
	}
}

func TestResolveRecipientUsernameMissNoSuggestions(t *testing.T) {
	repo := &fakeRepo{
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			return nil, store.ErrProfileNotFound
		},
		searchProfilesByUsername: func(ctx context.Context, fragment string, limit int) ([]domain.Profile, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.ResolveRecipient(context.Background(), "ghost", uuid.New())
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if !strings.Contains(notFound.Error(), "username or phone number") {
		t.Fatalf("message = %q, want the generic recipient message", notFound.Error())
	}
}

func TestResolveRecipientSelfTransfer(t *testing.T) {
	me := uuid.New()
	repo := &fakeRepo{
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			return &domain.Profile{ID: me, Username: username}, nil
		},
		findProfileByEmail: func(ctx context.Context, email string) (*domain.Profile, error) {
			return &domain.Profile{ID: me, Email: email}, nil
		},
		findProfileByPhoneFormats: func(ctx context.Context, formats []string) (*domain.Profile, error) {
			return &domain.Profile{ID: me}, nil
		},
	}
	svc := newTestService(repo)

	for _, input := range []string{"myself", "me@example.com", "0773049503"} {
		if _, err := svc.ResolveRecipient(context.Background(), input, me); !errors.Is(err, domain.ErrSelfTransfer) {
			t.Fatalf("ResolveRecipient(%q): err = %v, want ErrSelfTransfer", input, err)
		}
	}
}

func TestResolveRecipientTimeoutDistinctFromBackendError(t *testing.T) {
	repo := &fakeRepo{
		findProfileByUsername: func(ctx context.Context, username string) (*domain.Profile, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := NewService(repo, nil, nil, 20*time.Millisecond, time.Millisecond, decimal.Zero, 0)

	if _, err := svc.ResolveRecipient(context.Background(), "slowpoke", uuid.New()); !errors.Is(err, domain.ErrSearchTimeout) {
		t.Fatalf("err = %v, want ErrSearchTimeout", err)
	}

	repo.findProfileByUsername = func(ctx context.Context, username string) (*domain.Profile, error) {
		return nil, errors.New("connection refused")
	}
	if _, err := svc.ResolveRecipient(context.Background(), "slowpoke", uuid.New()); !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("err = %v, want ErrBackend", err)
	}
}
