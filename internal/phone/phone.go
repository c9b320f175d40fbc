/**
 * @description
 * Phone number handling for recipient lookups. ZimPay users enter numbers in
 * every shape imaginable — local "0773...", bare "773...", "263 077..."
 * typos, "00263..." — and historical signups stored several of those shapes
 * verbatim. This package canonicalizes input to E.164 and enumerates the
 * legacy storage shapes so one IN-style query matches them all.
 *
 * @dependencies
 * - github.com/nyaruka/phonenumbers: Go port of libphonenumber, used for
 *   strict parsing, validation and display formatting.
 */

package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the home region numbers are parsed against when the input
// carries no international dial code.
const DefaultRegion = "ZW"

// Normalizer canonicalizes phone numbers against a home region.
type Normalizer struct {
	region      string
	countryCode string // home region dial code digits, e.g. "263"
}

// NewNormalizer returns a Normalizer for the given ISO region. An empty
// region falls back to DefaultRegion.
func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{
		region:      region,
		countryCode: strconv.Itoa(phonenumbers.GetCountryCodeForRegion(region)),
	}
}

// fixCommonTypos pre-cleans input before parsing. Two local-entry mistakes
// dominate: keeping the local leading zero after the country code
// ("263 077..." for "+263 77...") and the double-zero international prefix
// ("00263...").
func (n *Normalizer) fixCommonTypos(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range raw {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	cc := n.countryCode
	if strings.HasPrefix(cleaned, cc+"0") && len(cleaned) >= len(cc)+9 {
		return "+" + cc + cleaned[len(cc)+1:]
	}
	if strings.HasPrefix(cleaned, "+"+cc+"0") && len(cleaned) >= len(cc)+10 {
		return "+" + cc + cleaned[len(cc)+2:]
	}
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}

	return cleaned
}

// Normalize parses a number to E.164 (e.g. +263773049503). Input with an
// international dial code is honored as-is; anything else is parsed against
// the home region. When strict parsing fails, a best-effort manual rule
// covers partial or locally-shaped numbers, and truly unparseable input is
// returned unchanged so callers degrade gracefully.
func (n *Normalizer) Normalize(raw string) string {
	fixed := n.fixCommonTypos(raw)
	if fixed != "" {
		if num, err := phonenumbers.Parse(fixed, n.region); err == nil && phonenumbers.IsValidNumber(num) {
			return phonenumbers.Format(num, phonenumbers.E164)
		}
	}

	digits := digitsOnly(raw)
	switch {
	case len(digits) == 9, strings.HasPrefix(digits, "0") && len(digits) == 10:
		// Locally-shaped subscriber number, with or without the leading zero.
		return "+" + n.countryCode + strings.TrimPrefix(digits, "0")
	case strings.HasPrefix(digits, n.countryCode) && len(digits) > 9:
		return "+" + digits
	}

	return raw
}

// LookupFormats returns every storage shape a number may have been saved
// under: the E.164 form, the digits-only form, and for home-region numbers
// the local forms plus the known mis-stored typo variants. Unparseable input
// yields just the raw string so a lookup degrades to an exact match instead
// of matching nothing or everything.
func (n *Normalizer) LookupFormats(raw string) []string {
	e164 := n.Normalize(raw)
	if !strings.HasPrefix(e164, "+") {
		return []string{raw}
	}

	digits := e164[1:]
	formats := []string{e164, digits}

	if strings.HasPrefix(e164, "+"+n.countryCode) {
		local := digits[len(n.countryCode):]
		formats = append(formats,
			"0"+local,
			local,
			n.countryCode+"0"+local,
			"+"+n.countryCode+"0"+local,
		)
	}

	seen := make(map[string]struct{}, len(formats))
	out := formats[:0]
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// IsValid reports whether the input is a valid number for its region after
// typo correction.
func (n *Normalizer) IsValid(raw string) bool {
	num, err := phonenumbers.Parse(n.fixCommonTypos(raw), n.region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// FormatForDisplay renders a number with international grouping, e.g.
// "+263 77 304 9503". Unparseable input comes back unchanged.
func (n *Normalizer) FormatForDisplay(raw string) string {
	num, err := phonenumbers.Parse(n.fixCommonTypos(raw), n.region)
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}

// Equal reports whether two inputs normalize to the same number.
func (n *Normalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
