package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request by what the caller should do about it.
type Kind int

const (
	// KindLostSession covers 3xx responses: Magnolia redirects to its login
	// page when the authenticated session lapses. Renew and retry.
	KindLostSession Kind = iota
	// KindBlocking covers 4xx responses: an authoritative refusal that no
	// retry will fix. The owning worker is tainted and must stop.
	KindBlocking
	// KindBackoff covers 5xx responses: transient server pressure. Pause,
	// renew the session, and move on.
	KindBackoff
	// KindSkip covers transport failures, parse failures, and unclassified
	// statuses. Drop the request and continue.
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindLostSession:
		return "lost session"
	case KindBlocking:
		return "blocking"
	case KindBackoff:
		return "backoff"
	default:
		return "skip"
	}
}

// Error is the classified failure of one request.
type Error struct {
	Kind   Kind
	Status int // HTTP status; 0 for transport and parse failures
	Msg    string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d; %s", e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// KindOf extracts the classification from err. Unclassified errors rate as
// skip, matching the policy that anything unexpected drops one request.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindSkip
}

// classify maps an HTTP status onto the four error kinds. Total over all
// integers: anything outside 3xx/4xx/5xx falls through to skip.
func classify(status int, msg string) *Error {
	switch {
	case status >= 300 && status < 400:
		return &Error{Kind: KindLostSession, Status: status, Msg: msg}
	case status >= 400 && status < 500:
		return &Error{Kind: KindBlocking, Status: status, Msg: msg}
	case status >= 500 && status < 600:
		return &Error{Kind: KindBackoff, Status: status, Msg: msg}
	default:
		return &Error{Kind: KindSkip, Status: status, Msg: msg}
	}
}

func skip(err error) *Error {
	return &Error{Kind: KindSkip, Msg: err.Error()}
}
