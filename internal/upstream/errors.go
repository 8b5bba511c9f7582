// Package upstream holds the failure type shared by every external client.
// Clients return mo.Result values whose error side is always a *FetchError,
// so callers decide explicitly how to degrade.
package upstream

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

type Kind string

const (
	// KindUnavailable covers transport failures and non-2xx answers.
	KindUnavailable Kind = "unavailable"
	// KindMalformed covers undecodable payloads, GraphQL errors and missing data paths.
	KindMalformed Kind = "malformed"
	// KindNotFound is a well-formed answer that carries no data.
	KindNotFound Kind = "not_found"
)

type FetchError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func Unavailable(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindUnavailable, Err: err}
}

func Malformed(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindMalformed, Err: err}
}

func NotFound(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindNotFound, Err: err}
}

// KindOf reports the kind of a FetchError anywhere in err's chain.
// Errors that are not FetchErrors are reported as unavailable.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnavailable
}

// Fail builds a failed result for T.
func Fail[T any](err *FetchError) mo.Result[T] {
	return mo.Err[T](err)
}

// Outcome is the metrics label for a finished call.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
