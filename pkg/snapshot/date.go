package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of snapshot identifiers.
const DateLayout = "20060102"

// ErrInvalidDate is returned for identifiers that are not a YYYYMMDD calendar date.
var ErrInvalidDate = errors.New("invalid snapshot date")

// Date identifies one daily snapshot.
type Date struct {
	t time.Time
}

// ParseDate parses a YYYYMMDD identifier. Impossible calendar dates such as
// 20240230 are rejected.
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) || strings.Trim(s, "0123456789") != "" {
		return Date{}, fmt.Errorf("%w: %q, want YYYYMMDD", ErrInvalidDate, s)
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q: %w", ErrInvalidDate, s, err)
	}

	return Date{t: t}, nil
}

// String returns the YYYYMMDD form.
func (d Date) String() string { return d.t.Format(DateLayout) }

// Expand substitutes {YYYY}, {MM}, {DD} and {YYYYMMDD} in pattern.
func (d Date) Expand(pattern string) string {
	return strings.NewReplacer(
		"{YYYYMMDD}", d.String(),
		"{YYYY}", d.t.Format("2006"),
		"{MM}", d.t.Format("01"),
		"{DD}", d.t.Format("02"),
	).Replace(pattern)
}
