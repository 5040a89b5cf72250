// Package card validates debit card input before any payment request is
// made. Nothing here talks to the network and the raw details never leave
// the process through this package.
package card

import (
	"regexp"
	"strings"
	"time"

	"github.com/Alturino/storefront/payment/pkg/request"
)

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatNumber strips everything but digits, caps the number at 16 digits
// and regroups it in blocks of four for display.
func FormatNumber(s string) string {
	digits := digitsOnly(s)
	if len(digits) > 16 {
		digits = digits[:16]
	}
	groups := make([]string, 0, 4)
	for len(digits) > 4 {
		groups = append(groups, digits[:4])
		digits = digits[4:]
	}
	if digits != "" {
		groups = append(groups, digits)
	}
	return strings.Join(groups, " ")
}

// Luhn reports whether the digit string passes the Luhn checksum.
func Luhn(number string) bool {
	digits := digitsOnly(number)
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidExpiry accepts MM/YY where the month is 01 to 12 and the card is
// still valid through the end of that month.
func ValidExpiry(value string, now time.Time) bool {
	if !expiryPattern.MatchString(value) {
		return false
	}
	mm := int(value[0]-'0')*10 + int(value[1]-'0')
	yy := int(value[3]-'0')*10 + int(value[4]-'0')
	if mm < 1 || mm > 12 {
		return false
	}
	// Day zero of the following month is the last day of the expiry month.
	endOfMonth := time.Date(2000+yy, time.Month(mm+1), 0, 23, 59, 59, 0, now.Location())
	return !endOfMonth.Before(now)
}

func ValidCvv(cvv string) bool {
	return cvvPattern.MatchString(cvv)
}

// Validate checks the full card form and returns one message per failing
// field, keyed by "number", "expiry" and "cvv". An empty map means the
// details are acceptable to send.
func Validate(details request.CardDetails, now time.Time) map[string]string {
	fieldErrors := map[string]string{}

	number := digitsOnly(details.Number)
	if len(number) != 16 {
		fieldErrors["number"] = "card number must be 16 digits"
	} else if !Luhn(number) {
		fieldErrors["number"] = "invalid card number"
	}

	if !ValidExpiry(details.Expiry, now) {
		fieldErrors["expiry"] = "invalid or expired date"
	}

	if !ValidCvv(details.Cvv) {
		fieldErrors["cvv"] = "cvv must be 3 to 4 digits"
	}

	return fieldErrors
}
