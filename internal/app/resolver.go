/**
 * @description
 * Recipient resolution: classifies a raw search string as a Zim account
 * reference, an email address, a phone number, or a username, then runs
 * exactly one lookup against the matching backend collection. Every failure
 * maps onto the domain error taxonomy so the workflow can render it inline.
 *
 * Classification rules:
 * - Leading "@" characters are user decoration and are stripped.
 * - A "zm-" prefix (case-insensitive) addresses the Zim account space and
 *   short-circuits all other classification.
 * - Email-shaped input needs an "@" and a domain-like suffix.
 * - Phone-shaped input holds only digits and separators with at least 9
 *   digits; the lookup matches every legacy storage shape of the number.
 * - Anything else is treated as a username. Input that only differs from a
 *   valid username by disallowed characters produces a suggested correction
 *   instead of a lookup.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zimpay/transfer-service/internal/domain"
	"github.com/zimpay/transfer-service/internal/store"
)

// suggestionLimit caps the "did you mean" candidates shown for a near-miss
// username search.
const suggestionLimit = 3

var (
	emailPattern         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)
	phonePattern         = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]*$`)
	usernameStripAllowed = regexp.MustCompile(`[^a-z0-9_]`)
)

// ResolveRecipient turns a raw search string into a transfer candidate or a
// specific failure. The lookup is bounded by the service's search timeout; a
// deadline hit surfaces as ErrSearchTimeout, distinct from a backend failure
// and from a plain miss.
func (s *Service) ResolveRecipient(ctx context.Context, rawInput string, currentUserID uuid.UUID) (*domain.Recipient, error) {
	input := strings.TrimSpace(rawInput)
	if utf8.RuneCountInString(input) < 2 {
		return nil, domain.ErrSearchTooShort
	}
	input = strings.TrimLeft(input, "@")

	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	if domain.HasZimAccountPrefix(input) {
		acct, err := s.repo.FindZimAccountByUsername(ctx, strings.ToLower(input))
		if err != nil {
			return nil, s.lookupFailure(ctx, err, domain.SearchByZimAccount)
		}
		return domain.RecipientFromZimAccount(acct), nil
	}

	var (
		profile *domain.Profile
		err     error
		method  string
	)
	switch {
	case emailPattern.MatchString(input):
		method = domain.SearchByEmail
		profile, err = s.repo.FindProfileByEmail(ctx, strings.ToLower(input))
	case isPhoneShaped(input):
		method = domain.SearchByPhone
		profile, err = s.repo.FindProfileByPhoneFormats(ctx, s.phones.LookupFormats(input))
	default:
		method = domain.SearchByUsername
		username, vErr := cleanUsername(input)
		if vErr != nil {
			return nil, vErr
		}
		profile, err = s.repo.FindProfileByUsername(ctx, username)
		if errors.Is(err, store.ErrProfileNotFound) {
			return nil, s.usernameMiss(ctx, username)
		}
	}
	if err != nil {
		return nil, s.lookupFailure(ctx, err, method)
	}

	if profile.ID == currentUserID {
		return nil, domain.ErrSelfTransfer
	}
	return &domain.Recipient{Profile: *profile}, nil
}

// usernameMiss handles the no-exact-match case: a bounded case-insensitive
// substring search supplies "did you mean" suggestions but never resolves.
func (s *Service) usernameMiss(ctx context.Context, username string) error {
	matches, err := s.repo.SearchProfilesByUsername(ctx, username, suggestionLimit)
	if err != nil {
		return s.lookupFailure(ctx, err, domain.SearchByUsername)
	}
	if len(matches) == 0 {
		return &domain.NotFoundError{Method: domain.SearchByUsername}
	}
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, m.Username)
	}
	return &domain.AmbiguousError{Suggestions: suggestions}
}

// lookupFailure translates repository errors into the resolution taxonomy.
func (s *Service) lookupFailure(ctx context.Context, err error, method string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.ErrSearchTimeout
	case errors.Is(err, store.ErrProfileNotFound):
		return &domain.NotFoundError{Method: method}
	case errors.Is(err, store.ErrZimAccountNotFound):
		return &domain.NotFoundError{Method: domain.SearchByZimAccount}
	default:
		return fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
}

// cleanUsername lowercases the input and validates it against the username
// alphabet. Input carrying disallowed characters is rejected with the
// cleaned form as a suggestion when one survives.
func cleanUsername(input string) (string, error) {
	lower := strings.ToLower(input)
	clean := usernameStripAllowed.ReplaceAllString(lower, "")
	if utf8.RuneCountInString(clean) < 2 {
		return "", &domain.InvalidFormatError{}
	}
	if clean != lower {
		return "", &domain.InvalidFormatError{Suggestion: clean}
	}
	return clean, nil
}

// isPhoneShaped reports whether the input looks like a phone number: only
// digits and common separators, with at least 9 digits overall.
func isPhoneShaped(input string) bool {
	if !phonePattern.MatchString(input) {
		return false
	}
	digits := 0
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 9
}
