package attendance

import (
	"context"
	"time"
)

// Store is the persistence contract the engine consumes. Getters return nil, nil when
// the row does not exist.
type Store interface {
	GetUser(ctx context.Context, username string) (*User, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	// CreateCourse returns ErrDuplicateCourse when the code is taken.
	CreateCourse(ctx context.Context, c Course) (Course, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	CreateSession(ctx context.Context, s Session) (Session, error)
	ListSessionsByCourse(ctx context.Context, courseID string) ([]Session, error)

	// SetSessionToken replaces the session's token and expiry in one statement and
	// reports whether the session exists.
	SetSessionToken(ctx context.Context, sessionID, token string, expiresAt time.Time) (bool, error)

	HasAttendance(ctx context.Context, sessionID, studentID string) (bool, error)
	// InsertAttendance returns ErrAlreadyCheckedIn when (session, student) already has a record.
	InsertAttendance(ctx context.Context, rec Record) (Record, error)
	ListAttendanceBySession(ctx context.Context, sessionID string) ([]AttendanceView, error)
	ListAttendanceByStudent(ctx context.Context, studentID string) ([]AttendanceView, error)

	CountSessions(ctx context.Context) (int64, error)
	CountStudents(ctx context.Context) (int64, error)
	CountStatuses(ctx context.Context) (StatusCounts, error)
	CountStatusesByStudent(ctx context.Context, studentID string) (StatusCounts, error)
	CountStatusesBySessions(ctx context.Context, sessionIDs []string) (StatusCounts, error)

	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

// Locker serializes work on a key across concurrent requests.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
