package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateCourse registers a course that sessions can be scheduled for.
func (s *Service) CreateCourse(ctx context.Context, in Course) (Course, error) {
	in.ID = ""
	in.Code = strings.TrimSpace(in.Code)
	in.Title = strings.TrimSpace(in.Title)
	if in.Code == "" || in.Title == "" {
		return Course{}, badRequest("Course code and title are required")
	}
	course, err := s.store.CreateCourse(ctx, in)
	if err != nil {
		if KindOf(err) != KindInternal {
			return Course{}, err
		}
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

// CreateSession schedules a session for an existing course.
func (s *Service) CreateSession(ctx context.Context, in NewSession) (SessionView, error) {
	if strings.TrimSpace(in.CourseID) == "" {
		return SessionView{}, badRequest("Course ID is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return SessionView{}, ErrInvalidSchedule
	}
	course, err := s.store.GetCourse(ctx, in.CourseID)
	if err != nil {
		return SessionView{}, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return SessionView{}, notFound("Course")
	}

	sess, err := s.store.CreateSession(ctx, Session{
		ID:          uuid.NewString(),
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseTitle: course.Title,
		SessionDate: in.SessionDate.UTC(),
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
	})
	if err != nil {
		return SessionView{}, fmt.Errorf("create session: %w", err)
	}
	return s.sessionView(sess), nil
}

// GetSession returns one session with its current token state.
func (s *Service) GetSession(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return SessionView{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return SessionView{}, notFound("Session")
	}
	return s.sessionView(*sess), nil
}

// ListSessionsByCourse returns the sessions of a course ordered by start time.
func (s *Service) ListSessionsByCourse(ctx context.Context, courseID string) ([]SessionView, error) {
	sessions, err := s.store.ListSessionsByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, s.sessionView(sess))
	}
	return out, nil
}

// ListAttendanceBySession returns every record of a session.
func (s *Service) ListAttendanceBySession(ctx context.Context, sessionID string) ([]AttendanceView, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, notFound("Session")
	}
	return s.store.ListAttendanceBySession(ctx, sess.ID)
}

// ListAttendanceByStudent returns every record of a student.
func (s *Service) ListAttendanceByStudent(ctx context.Context, studentID string) ([]AttendanceView, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}
	return s.store.ListAttendanceByStudent(ctx, student.ID)
}

// StudentIDFor resolves username to its student id, if any.
func (s *Service) StudentIDFor(ctx context.Context, username string) (string, bool, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return "", false, fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.StudentID == nil {
		return "", false, nil
	}
	return *user.StudentID, true, nil
}

func (s *Service) sessionView(sess Session) SessionView {
	active := sess.QRToken != nil && sess.QRTokenExpiresAt != nil && sess.QRTokenExpiresAt.After(s.clock())
	return SessionView{
		ID:               sess.ID,
		CourseID:         sess.CourseID,
		CourseCode:       sess.CourseCode,
		CourseTitle:      sess.CourseTitle,
		SessionDate:      sess.SessionDate,
		StartTime:        sess.StartTime,
		EndTime:          sess.EndTime,
		QRToken:          sess.QRToken,
		QRTokenExpiresAt: sess.QRTokenExpiresAt,
		QRTokenActive:    active,
	}
}
