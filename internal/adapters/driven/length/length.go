// Package length measures and truncates answers in characters or tokens.
package length

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

var (
	_ driven.LengthBounder = Chars{}
	_ driven.LengthBounder = (*Tokens)(nil)
)

// DefaultEncoding is the BPE encoding used for token budgets.
const DefaultEncoding = "cl100k_base"

// New returns the bounder for unit.
func New(unit domain.LengthUnit) (driven.LengthBounder, error) {
	switch unit {
	case domain.LengthUnitChars:
		return Chars{}, nil
	case domain.LengthUnitTokens:
		return NewTokens(DefaultEncoding)
	default:
		return nil, domain.NewConfigurationError("length_unit", string(unit), "must be chars or tokens")
	}
}

// Chars bounds text by Unicode code points.
type Chars struct{}

// Unit returns chars.
func (Chars) Unit() domain.LengthUnit { return domain.LengthUnitChars }

// Measure returns the number of code points.
func (Chars) Measure(text string) int { return utf8.RuneCountInString(text) }

// Bound truncates to limit code points, cutting at the last word boundary
// when one exists in the second half of the budget.
func (Chars) Bound(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)[:limit]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 && utf8.RuneCountInString(cut[:i]) >= limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// Tokens bounds text by BPE tokens.
type Tokens struct {
	enc *tiktoken.Tiktoken
}

// NewTokens loads the named encoding. The BPE ranks are fetched once and
// cached under TIKTOKEN_CACHE_DIR.
func NewTokens(encoding string) (*Tokens, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding %s: %w", encoding, err)
	}
	return &Tokens{enc: enc}, nil
}

// Unit returns tokens.
func (t *Tokens) Unit() domain.LengthUnit { return domain.LengthUnitTokens }

// Measure returns the number of tokens.
func (t *Tokens) Measure(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Bound keeps the first limit tokens. A multi-byte character split by the
// cut is dropped.
func (t *Tokens) Bound(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return strings.TrimSpace(strings.ToValidUTF8(t.enc.Decode(tokens[:limit]), ""))
}
