package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison key for a user-supplied name or title.
// It trims, drops diacritics and case folds, so "Mercado", " mercado " and
// "MERCADÓ" all collide. It is never used for display.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = norm.NFC.String(strings.TrimSpace(s))
	}
	return cases.Fold().String(out)
}

// SameName reports whether two names collide after normalization.
func SameName(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// RuneLen counts characters the way length limits are enforced.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// NewID returns a prefixed, time-ordered identifier such as
// "task_0192f7a0-...". UUIDv7 keeps ids unique within the process even
// when several are minted in the same millisecond.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s_%s_%s", prefix, strconv.FormatInt(time.Now().UnixMilli(), 36), uuid.NewString()[:6])
	}
	return prefix + "_" + id.String()
}
