package qrdecode

import (
	"context"
	"errors"
	"strings"
)

type Kind string

const (
	KindNoCode      Kind = "no_code_found"
	KindUnsupported Kind = "unsupported"
	KindTimeout     Kind = "timeout"
	KindUnreadable  Kind = "unreadable"
	KindOversized   Kind = "oversized"
	KindGeneric     Kind = "generic"
)

// rank orders kinds by how much they tell the operator. A strategy that saw
// a damaged code beats one that saw nothing, which beats a timeout.
var rank = map[Kind]int{
	KindGeneric:     0,
	KindTimeout:     1,
	KindNoCode:      2,
	KindUnreadable:  3,
	KindUnsupported: 4,
	KindOversized:   5,
}

// DecodeError is a classified decode failure. Every kind can be retried
// with another photo.
type DecodeError struct {
	Kind Kind
	// Messages are the distinct failure messages of all attempts, in order.
	Messages []string
	Err      error
}

func (e *DecodeError) Error() string {
	if len(e.Messages) == 0 {
		return "qr decode failed: " + string(e.Kind)
	}
	return "qr decode failed (" + string(e.Kind) + "): " + strings.Join(e.Messages, "; ")
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// LabelKey is the labels key of the operator-facing message.
func (e *DecodeError) LabelKey() string {
	return "qr_" + string(e.Kind)
}

func (e *DecodeError) Retryable() bool {
	return true
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return KindGeneric
	case errors.Is(err, ErrOversized):
		return KindOversized
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrUnreadable):
		return KindUnreadable
	case errors.Is(err, ErrNoCode):
		return KindNoCode
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindGeneric
	}
}

// newDecodeError picks the most informative of the attempt failures. single
// is used for failures that happen before any strategy runs.
func newDecodeError(failures []error, single error) *DecodeError {
	if single != nil {
		failures = append(failures, single)
	}
	de := &DecodeError{Kind: KindGeneric}
	best := -1
	seen := make(map[string]bool)
	for _, f := range failures {
		msg := f.Error()
		if !seen[msg] {
			seen[msg] = true
			de.Messages = append(de.Messages, msg)
		}
		k := classify(f)
		if rank[k] > best {
			best = rank[k]
			de.Kind = k
			de.Err = f
		}
	}
	if de.Err == nil {
		de.Err = ErrNoCode
		de.Kind = KindNoCode
	}
	return de
}
