package validate

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Failure classifies why a value could not be submitted.
type Failure int

const (
	FailureNone Failure = iota
	FailureRequired
	FailureInvalid
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureRequired:
		return "required"
	case FailureInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

const (
	emailPattern = `^[A-Za-z0-9._%+-]+@(?![A-Za-z0-9.-]*\.\.)[A-Za-z0-9.-]+\.[A-Za-z]{2,}\z`
	matchTimeout = 50 * time.Millisecond
)

var emailRe = compileEmail()

func compileEmail() *regexp2.Regexp {
	// No IgnoreCase: its folding lets [A-Z] match U+212A and U+0130.
	re := regexp2.MustCompile(emailPattern, regexp2.None)
	re.MatchTimeout = matchTimeout
	return re
}

// Email trims raw and reports whether it may be submitted.
// The trimmed value is returned even when validation fails.
func Email(raw string) (string, Failure) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", FailureRequired
	}
	if !MatchEmail(email) {
		return email, FailureInvalid
	}
	return email, FailureNone
}

// MatchEmail reports whether s matches the address pattern exactly.
// A match timeout counts as a mismatch.
func MatchEmail(s string) bool {
	ok, err := emailRe.MatchString(s)
	if err != nil {
		return false
	}
	return ok
}
