package attendance

import "time"

// Status is the outcome recorded for one check-in. ABSENT is derived, never stored.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
	StatusAbsent  Status = "ABSENT"
)

// Valid reports whether s may be persisted on an attendance record.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusLate
}

// Roles carried by authenticated identities.
const (
	RoleAdmin   = "ADMIN"
	RoleStudent = "STUDENT"
)

// Course is the owner of sessions.
type Course struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Student is a person who can check in.
type Student struct {
	ID            string `json:"id"`
	StudentNumber string `json:"studentNumber"`
	FullName      string `json:"fullName"`
	Email         string `json:"email,omitempty"`
}

// User maps an authenticated username to a role and, for students, a student id.
type User struct {
	Username  string
	Role      string
	StudentID *string
}

// Session is one scheduled class meeting. QRToken and QRTokenExpiresAt are set together.
type Session struct {
	ID               string
	CourseID         string
	CourseCode       string
	CourseTitle      string
	SessionDate      time.Time
	StartTime        time.Time
	EndTime          time.Time
	QRToken          *string
	QRTokenExpiresAt *time.Time
}

// Record is one committed check-in.
type Record struct {
	ID            string
	SessionID     string
	StudentID     string
	Status        Status
	CheckedAt     time.Time
	ProvidedToken string
}

// TokenGrant is returned to the admin who generated a session token.
type TokenGrant struct {
	SessionID  string    `json:"sessionId"`
	Token      string    `json:"token"`
	CheckInURL string    `json:"checkInUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Verification is the advisory result of scanning a token.
type Verification struct {
	Valid            bool       `json:"valid"`
	Reason           Reason     `json:"reason,omitempty"`
	Message          string     `json:"message"`
	SessionID        string     `json:"sessionId"`
	CourseCode       string     `json:"courseCode"`
	CourseTitle      string     `json:"courseTitle"`
	SessionDate      time.Time  `json:"sessionDate"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	AlreadyCheckedIn bool       `json:"alreadyCheckedIn"`
}

// AttendanceView is the transfer shape of an attendance record.
type AttendanceView struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	StudentID     string    `json:"studentId"`
	StudentNumber string    `json:"studentNumber"`
	StudentName   string    `json:"studentName"`
	Status        Status    `json:"status"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// CheckInResult is the committed attendance plus the course it counts toward.
type CheckInResult struct {
	Attendance AttendanceView
	CourseID   string
}

// SessionView is the admin-facing shape of a session.
type SessionView struct {
	ID               string     `json:"id"`
	CourseID         string     `json:"courseId"`
	CourseCode       string     `json:"courseCode"`
	CourseTitle      string     `json:"courseTitle"`
	SessionDate      time.Time  `json:"sessionDate"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	QRToken          *string    `json:"qrToken,omitempty"`
	QRTokenExpiresAt *time.Time `json:"qrTokenExpiresAt,omitempty"`
	QRTokenActive    bool       `json:"qrTokenActive"`
}

// NewSession describes a session to schedule.
type NewSession struct {
	CourseID    string
	SessionDate time.Time
	StartTime   time.Time
	EndTime     time.Time
}
