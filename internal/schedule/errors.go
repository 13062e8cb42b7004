package schedule

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed lookup.
type Kind string

const (
	KindNetwork             Kind = "NetworkError"
	KindFormNotFound        Kind = "FormNotFound"
	KindFieldsNotIdentified Kind = "FieldsNotIdentified"
	KindAddressAmbiguous    Kind = "AddressAmbiguous"
	KindAddressNotFound     Kind = "AddressNotFound"
	KindTimeout             Kind = "Timeout"
	KindUnexpected          Kind = "UnexpectedError"
)

// Sentinels for errors.Is checks against a *LookupError.
var (
	ErrNetwork             = errors.New("network error")
	ErrFormNotFound        = errors.New("form not found")
	ErrFieldsNotIdentified = errors.New("form fields not identified")
	ErrAddressAmbiguous    = errors.New("address ambiguous")
	ErrAddressNotFound     = errors.New("address not found")
	ErrTimeout             = errors.New("timeout")
	ErrUnexpected          = errors.New("unexpected error")
)

var sentinels = map[Kind]error{
	KindNetwork:             ErrNetwork,
	KindFormNotFound:        ErrFormNotFound,
	KindFieldsNotIdentified: ErrFieldsNotIdentified,
	KindAddressAmbiguous:    ErrAddressAmbiguous,
	KindAddressNotFound:     ErrAddressNotFound,
	KindTimeout:             ErrTimeout,
	KindUnexpected:          ErrUnexpected,
}

// LookupError is the terminal error record of a lookup.
type LookupError struct {
	Kind       Kind
	Message    string
	Debug      string   // supplementary diagnostics, shown to the user
	Candidates []string // address choices for KindAddressAmbiguous
	Err        error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *LookupError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Errorf builds a LookupError of the given kind.
func Errorf(kind Kind, format string, args ...any) *LookupError {
	return &LookupError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a LookupError of the given kind around err. The cause's text is
// kept as debug information.
func Wrap(kind Kind, err error, message string) *LookupError {
	return &LookupError{Kind: kind, Message: message, Err: err, Debug: err.Error()}
}

// Classify converts any error into a *LookupError. Existing lookup errors are
// returned unchanged, deadline errors become timeouts and everything else is
// unexpected.
func Classify(err error) *LookupError {
	if err == nil {
		return nil
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, err, "Timeout waiting for page to load")
	}
	return Wrap(KindUnexpected, err, "Unexpected error")
}
