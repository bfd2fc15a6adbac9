package attendance

import "errors"

// Kind classifies business-rule failures for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindUnauthorized
)

// Error is a business-rule rejection with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrUnknownUser      = &Error{Kind: KindUnauthorized, Msg: "User not found"}
	ErrNotStudent       = &Error{Kind: KindBadRequest, Msg: "Only students can check in"}
	ErrInvalidToken     = &Error{Kind: KindBadRequest, Msg: "Invalid QR token"}
	ErrTokenExpired     = &Error{Kind: KindBadRequest, Msg: "QR token has expired"}
	ErrAlreadyCheckedIn = &Error{Kind: KindBadRequest, Msg: "Student has already checked in to this session"}
	ErrNotOpenYet       = &Error{Kind: KindBadRequest, Msg: "Attendance is not open yet"}
	ErrInvalidValidity  = &Error{Kind: KindBadRequest, Msg: "Token validity must be between 1 and 10080 minutes"}
	ErrInvalidSchedule  = &Error{Kind: KindBadRequest, Msg: "Session end time must be after start time"}
	ErrDuplicateCourse  = &Error{Kind: KindBadRequest, Msg: "Course code already exists"}
)

func notFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

func badRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Msg: msg}
}

// KindOf returns the kind of err, or KindInternal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
