package validator

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// DefaultMaxLength is applied by SanitizeString when no limit is given.
const DefaultMaxLength = 255

// SanitizeString trims value and reports whether the result is non-empty and at
// most maxLength characters long. A maxLength <= 0 uses DefaultMaxLength.
func SanitizeString(value string, maxLength int) (string, bool) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxLength {
		return "", false
	}
	return trimmed, true
}

type numberBounds struct {
	min, max       float64
	hasMin, hasMax bool
}

// NumberOption constrains SanitizeNumber.
type NumberOption func(*numberBounds)

// Min rejects values below n.
func Min(n float64) NumberOption {
	return func(b *numberBounds) {
		b.min, b.hasMin = n, true
	}
}

// Max rejects values above n.
func Max(n float64) NumberOption {
	return func(b *numberBounds) {
		b.max, b.hasMax = n, true
	}
}

// SanitizeNumber coerces value to a float64. Empty, non-numeric, non-finite and
// out of range values are reported as invalid. It never panics.
func SanitizeNumber(value any, opts ...NumberOption) (float64, bool) {
	var bounds numberBounds
	for _, opt := range opts {
		opt(&bounds)
	}

	var (
		n   float64
		err error
	)
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		n, err = cast.ToFloat64E(s)
	default:
		n, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}

	if bounds.hasMin && n < bounds.min {
		return 0, false
	}
	if bounds.hasMax && n > bounds.max {
		return 0, false
	}
	return n, true
}

// SanitizeInt is SanitizeNumber restricted to whole numbers.
func SanitizeInt(value any, opts ...NumberOption) (int64, bool) {
	n, ok := SanitizeNumber(value, opts...)
	if !ok || n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
		return 0, false
	}
	return int64(n), true
}

const sqlDateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339 input.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(sqlDateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDateForSQL renders t as YYYY-MM-DD.
func FormatDateForSQL(t time.Time) string {
	return t.Format(sqlDateLayout)
}

// Sort is a validated ORDER BY clause.
type Sort struct {
	Field string
	Order string
}

// Clause renders the sort for an ORDER BY.
func (s Sort) Clause() string {
	return s.Field + " " + s.Order
}

// SortParams picks the sort field from allowed (falling back to defaultField) and
// the order, which is ASC unless sortOrder is "desc".
func SortParams(sortBy, sortOrder string, allowed []string, defaultField string) Sort {
	order := "ASC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "desc") {
		order = "DESC"
	}

	field := defaultField
	for _, f := range allowed {
		if f == sortBy {
			field = f
			break
		}
	}
	return Sort{Field: field, Order: order}
}
