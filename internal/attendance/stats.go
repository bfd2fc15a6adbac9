package attendance

import (
	"context"
	"fmt"
	"time"
)

// StatusCounts are the recorded check-ins of a scope.
type StatusCounts struct {
	Present int64
	Late    int64
}

// Add accumulates one recorded status.
func (c *StatusCounts) Add(st Status, n int64) {
	switch st {
	case StatusPresent:
		c.Present += n
	case StatusLate:
		c.Late += n
	}
}

// Stats is the aggregate shared by every scope.
type Stats struct {
	TotalSessions          int64            `json:"totalSessions"`
	TotalStudents          int64            `json:"totalStudents"`
	TotalAttendanceRecords int64            `json:"totalAttendanceRecords"`
	PresentCount           int64            `json:"presentCount"`
	LateCount              int64            `json:"lateCount"`
	AbsentCount            int64            `json:"absentCount"`
	AttendanceRate         float64          `json:"attendanceRate"`
	StatusCount            map[Status]int64 `json:"statusCount"`
}

// SessionStats is Stats for one session.
type SessionStats struct {
	SessionID      string    `json:"sessionId"`
	SessionDate    time.Time `json:"sessionDate"`
	TotalStudents  int64     `json:"totalStudents"`
	PresentCount   int64     `json:"presentCount"`
	LateCount      int64     `json:"lateCount"`
	AbsentCount    int64     `json:"absentCount"`
	AttendanceRate float64   `json:"attendanceRate"`
}

// StudentStats is Stats for one student.
type StudentStats struct {
	StudentID      string  `json:"studentId"`
	StudentNumber  string  `json:"studentNumber"`
	StudentName    string  `json:"studentName"`
	TotalSessions  int64   `json:"totalSessions"`
	PresentCount   int64   `json:"presentCount"`
	LateCount      int64   `json:"lateCount"`
	AbsentCount    int64   `json:"absentCount"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// CourseStats is Stats for the sessions of one course.
type CourseStats struct {
	CourseID string `json:"courseId"`
	Stats
}

// Summarize turns recorded counts into absent counts and a rate. Every student is assumed
// eligible for every session in scope, so the expected total is sessions × students.
// Absent is clamped at zero and the rate at 100 when records exceed that expectation.
func Summarize(c StatusCounts, sessions, students int64) Stats {
	attended := c.Present + c.Late
	expected := sessions * students

	var absent int64
	var rate float64
	if expected > 0 {
		absent = max(expected-attended, 0)
		rate = min(float64(attended)/float64(expected)*100, 100)
	}
	return Stats{
		TotalSessions:          sessions,
		TotalStudents:          students,
		TotalAttendanceRecords: attended,
		PresentCount:           c.Present,
		LateCount:              c.Late,
		AbsentCount:            absent,
		AttendanceRate:         rate,
		StatusCount: map[Status]int64{
			StatusPresent: c.Present,
			StatusLate:    c.Late,
			StatusAbsent:  absent,
		},
	}
}

// SystemStatistics covers every session and every student.
func (s *Service) SystemStatistics(ctx context.Context) (Stats, error) {
	counts, err := s.store.CountStatuses(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count statuses: %w", err)
	}
	sessions, students, err := s.totals(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(counts, sessions, students), nil
}

// SessionStatistics covers one session against every student.
func (s *Service) SessionStatistics(ctx context.Context, sessionID string) (SessionStats, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionStats{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return SessionStats{}, notFound("Session")
	}
	counts, err := s.store.CountStatusesBySessions(ctx, []string{sess.ID})
	if err != nil {
		return SessionStats{}, fmt.Errorf("count statuses: %w", err)
	}
	students, err := s.store.CountStudents(ctx)
	if err != nil {
		return SessionStats{}, fmt.Errorf("count students: %w", err)
	}
	st := Summarize(counts, 1, students)
	return SessionStats{
		SessionID:      sess.ID,
		SessionDate:    sess.SessionDate,
		TotalStudents:  students,
		PresentCount:   st.PresentCount,
		LateCount:      st.LateCount,
		AbsentCount:    st.AbsentCount,
		AttendanceRate: st.AttendanceRate,
	}, nil
}

// StudentStatistics covers one student against every session.
func (s *Service) StudentStatistics(ctx context.Context, studentID string) (StudentStats, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return StudentStats{}, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return StudentStats{}, notFound("Student")
	}
	counts, err := s.store.CountStatusesByStudent(ctx, student.ID)
	if err != nil {
		return StudentStats{}, fmt.Errorf("count statuses: %w", err)
	}
	sessions, err := s.store.CountSessions(ctx)
	if err != nil {
		return StudentStats{}, fmt.Errorf("count sessions: %w", err)
	}
	st := Summarize(counts, sessions, 1)
	return StudentStats{
		StudentID:      student.ID,
		StudentNumber:  student.StudentNumber,
		StudentName:    student.FullName,
		TotalSessions:  sessions,
		PresentCount:   st.PresentCount,
		LateCount:      st.LateCount,
		AbsentCount:    st.AbsentCount,
		AttendanceRate: st.AttendanceRate,
	}, nil
}

// CourseStatistics covers the sessions of one course against every student.
func (s *Service) CourseStatistics(ctx context.Context, courseID string) (CourseStats, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return CourseStats{}, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return CourseStats{}, notFound("Course")
	}
	sessions, err := s.store.ListSessionsByCourse(ctx, course.ID)
	if err != nil {
		return CourseStats{}, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	counts, err := s.store.CountStatusesBySessions(ctx, ids)
	if err != nil {
		return CourseStats{}, fmt.Errorf("count statuses: %w", err)
	}
	students, err := s.store.CountStudents(ctx)
	if err != nil {
		return CourseStats{}, fmt.Errorf("count students: %w", err)
	}
	return CourseStats{
		CourseID: course.ID,
		Stats:    Summarize(counts, int64(len(ids)), students),
	}, nil
}

func (s *Service) totals(ctx context.Context) (sessions, students int64, err error) {
	if sessions, err = s.store.CountSessions(ctx); err != nil {
		return 0, 0, fmt.Errorf("count sessions: %w", err)
	}
	if students, err = s.store.CountStudents(ctx); err != nil {
		return 0, 0, fmt.Errorf("count students: %w", err)
	}
	return sessions, students, nil
}
