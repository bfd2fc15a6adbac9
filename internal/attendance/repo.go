package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository persists courses, sessions and attendance with database/sql. Queries use
// $N placeholders, which both pgx and modernc sqlite accept.
type Repository struct {
	db *sql.DB // nil when bound to a transaction
	q  querier
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if store.IsUniqueViolation(err) {
			return ErrAlreadyCheckedIn
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetUser returns the identity mapping for username.
func (r *Repository) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	var studentID sql.NullString
	err := r.q.QueryRowContext(ctx,
		`SELECT username, role, student_id FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.Role, &studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if studentID.Valid {
		u.StudentID = &studentID.String
	}
	return &u, nil
}

// UpsertUser creates or updates the identity mapping for a username.
func (r *Repository) UpsertUser(ctx context.Context, u User) error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username required")
	}
	var studentID sql.NullString
	if u.StudentID != nil {
		studentID = sql.NullString{String: *u.StudentID, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (username, role, student_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET
			role = EXCLUDED.role,
			student_id = EXCLUDED.student_id
	`, u.Username, u.Role, studentID)
	return err
}

// GetStudent returns a student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	var st Student
	var email sql.NullString
	err := r.q.QueryRowContext(ctx,
		`SELECT id, student_number, full_name, email FROM students WHERE id = $1`, id,
	).Scan(&st.ID, &st.StudentNumber, &st.FullName, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	st.Email = email.String
	return &st, nil
}

// CreateStudent inserts a student, assigning an id when empty.
func (r *Repository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	var email sql.NullString
	if st.Email != "" {
		email = sql.NullString{String: st.Email, Valid: true}
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO students (id, student_number, full_name, email) VALUES ($1, $2, $3, $4)`,
		st.ID, st.StudentNumber, st.FullName, email,
	)
	if err != nil {
		return Student{}, fmt.Errorf("insert student: %w", err)
	}
	return st, nil
}

// GetCourse returns a course by id.
func (r *Repository) GetCourse(ctx context.Context, id string) (*Course, error) {
	var c Course
	err := r.q.QueryRowContext(ctx,
		`SELECT id, code, title, description FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Code, &c.Title, &c.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a course, assigning an id when empty.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO courses (id, code, title, description) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Code, c.Title, c.Description,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Course{}, ErrDuplicateCourse
		}
		return Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

const sessionColumns = `s.id, s.course_id, c.code, c.title, s.session_date, s.start_time, s.end_time,
	s.qr_token, s.qr_token_expires_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var token sql.NullString
	var expires sql.NullTime
	if err := row.Scan(&s.ID, &s.CourseID, &s.CourseCode, &s.CourseTitle,
		&s.SessionDate, &s.StartTime, &s.EndTime, &token, &expires); err != nil {
		return Session{}, err
	}
	s.SessionDate = s.SessionDate.UTC()
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	if token.Valid {
		s.QRToken = &token.String
	}
	if expires.Valid {
		t := expires.Time.UTC()
		s.QRTokenExpiresAt = &t
	}
	return s, nil
}

// GetSession returns a session joined with its course.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		JOIN courses c ON c.id = s.course_id
		WHERE s.id = $1
	`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a session without a token.
func (r *Repository) CreateSession(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, course_id, session_date, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.CourseID, s.SessionDate.UTC(), s.StartTime.UTC(), s.EndTime.UTC())
	if err != nil {
		return Session{}, err
	}
	s.QRToken, s.QRTokenExpiresAt = nil, nil
	return s, nil
}

// ListSessionsByCourse returns a course's sessions ordered by start time.
func (r *Repository) ListSessionsByCourse(ctx context.Context, courseID string) ([]Session, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		JOIN courses c ON c.id = s.course_id
		WHERE s.course_id = $1
		ORDER BY s.start_time, s.id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SetSessionToken overwrites the token pair of one session.
func (r *Repository) SetSessionToken(ctx context.Context, sessionID, token string, expiresAt time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET qr_token = $2, qr_token_expires_at = $3
		WHERE id = $1
	`, sessionID, token, expiresAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasAttendance reports whether (session, student) already has a record.
func (r *Repository) HasAttendance(ctx context.Context, sessionID, studentID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE session_id = $1 AND student_id = $2`,
		sessionID, studentID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertAttendance writes a new record. The (session_id, student_id) unique constraint
// surfaces as ErrAlreadyCheckedIn.
func (r *Repository) InsertAttendance(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if !rec.Status.Valid() {
		return Record{}, fmt.Errorf("invalid attendance status %q", rec.Status)
	}
	rec.CheckedAt = rec.CheckedAt.UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (id, session_id, student_id, status, checked_at, provided_qr_token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.SessionID, rec.StudentID, string(rec.Status), rec.CheckedAt, rec.ProvidedToken)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, ErrAlreadyCheckedIn
		}
		return Record{}, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, nil
}

const attendanceViewQuery = `
	SELECT a.id, a.session_id, a.student_id, st.student_number, st.full_name, a.status, a.checked_at
	FROM attendance a
	JOIN students st ON st.id = a.student_id
`

// ListAttendanceBySession returns the records of one session.
func (r *Repository) ListAttendanceBySession(ctx context.Context, sessionID string) ([]AttendanceView, error) {
	return r.listAttendance(ctx, attendanceViewQuery+` WHERE a.session_id = $1 ORDER BY a.checked_at, a.id`, sessionID)
}

// ListAttendanceByStudent returns the records of one student.
func (r *Repository) ListAttendanceByStudent(ctx context.Context, studentID string) ([]AttendanceView, error) {
	return r.listAttendance(ctx, attendanceViewQuery+` WHERE a.student_id = $1 ORDER BY a.checked_at, a.id`, studentID)
}

func (r *Repository) listAttendance(ctx context.Context, query string, args ...any) ([]AttendanceView, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []AttendanceView{}
	for rows.Next() {
		var v AttendanceView
		var status string
		if err := rows.Scan(&v.ID, &v.SessionID, &v.StudentID, &v.StudentNumber, &v.StudentName, &status, &v.CheckedAt); err != nil {
			return nil, err
		}
		v.Status = Status(status)
		v.CheckedAt = v.CheckedAt.UTC()
		res = append(res, v)
	}
	return res, rows.Err()
}

// CountSessions counts every session.
func (r *Repository) CountSessions(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sessions`)
}

// CountStudents counts every student.
func (r *Repository) CountStudents(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM students`)
}

func (r *Repository) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountStatuses tallies every record.
func (r *Repository) CountStatuses(ctx context.Context) (StatusCounts, error) {
	return r.countStatuses(ctx, `SELECT status, COUNT(*) FROM attendance GROUP BY status`)
}

// CountStatusesByStudent tallies one student's records.
func (r *Repository) CountStatusesByStudent(ctx context.Context, studentID string) (StatusCounts, error) {
	return r.countStatuses(ctx, `SELECT status, COUNT(*) FROM attendance WHERE student_id = $1 GROUP BY status`, studentID)
}

// CountStatusesBySessions tallies the records whose session is in sessionIDs.
func (r *Repository) CountStatusesBySessions(ctx context.Context, sessionIDs []string) (StatusCounts, error) {
	if len(sessionIDs) == 0 {
		return StatusCounts{}, nil
	}
	args := make([]any, 0, len(sessionIDs))
	marks := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		args = append(args, id)
		marks = append(marks, "$"+strconv.Itoa(len(args)))
	}
	query := `SELECT status, COUNT(*) FROM attendance WHERE session_id IN (` +
		strings.Join(marks, ", ") + `) GROUP BY status`
	return r.countStatuses(ctx, query, args...)
}

func (r *Repository) countStatuses(ctx context.Context, query string, args ...any) (StatusCounts, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()
	var c StatusCounts
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		c.Add(Status(status), n)
	}
	return c, rows.Err()
}

var _ Store = (*Repository)(nil)
