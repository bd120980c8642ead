package fetcher

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags an Outcome.
type Kind int

const (
	// KindValue means the page held a parseable, non-negative balance
	KindValue Kind = iota
	// KindAbsent means the page was fetched but has no SATORI entry
	KindAbsent
	// KindFailure means the balance could not be obtained
	KindFailure
)

// Rendered outcome texts, as written to the results table.
const (
	AbsentText    = "No SATORI found"
	TimeoutText   = "Timeout Error"
	ExhaustedText = "Failed after retries"
	errorPrefix   = "Error: "
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindAbsent:
		return "absent"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "value":
		return KindValue, nil
	case "absent":
		return KindAbsent, nil
	case "failure":
		return KindFailure, nil
	default:
		return 0, fmt.Errorf("unknown outcome kind %q", s)
	}
}

// Outcome is the tagged result of looking up one address.
// Text is always the rendered form; Amount is only meaningful for KindValue.
type Outcome struct {
	Kind   Kind
	Text   string
	Amount decimal.Decimal
}

// Value creates a successful outcome. text is kept exactly as extracted.
func Value(text string, amount decimal.Decimal) Outcome {
	return Outcome{Kind: KindValue, Text: text, Amount: amount}
}

// Absent creates the "no SATORI entry" outcome.
func Absent() Outcome {
	return Outcome{Kind: KindAbsent, Text: AbsentText}
}

// Failure creates a failed outcome carrying a short human-readable reason.
func Failure(reason string) Outcome {
	return Outcome{Kind: KindFailure, Text: reason}
}

// ErrorFailure creates the "Error: <message>" failure for err.
func ErrorFailure(err error) Outcome {
	return Failure(errorPrefix + err.Error())
}

// FromToken classifies the raw token returned by an extractor.
// A cell that is present but not a valid quantity is a failure whose
// text is the cell content itself.
func FromToken(token string, found bool) Outcome {
	if !found {
		return Absent()
	}
	if amount, ok := ParseAmount(token); ok {
		return Value(token, amount)
	}
	return Failure(token)
}

// String returns the rendered outcome text.
func (o Outcome) String() string {
	return o.Text
}

// ParseAmount parses a balance as displayed on the explorer, e.g. "1,234.50".
// Thousands separators are removed before parsing. Negative amounts are rejected.
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if cleaned == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}

	return amount, true
}
