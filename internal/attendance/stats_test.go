package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name               string
		counts             StatusCounts
		sessions, students int64
		wantAbsent         int64
		wantRate           float64
	}{
		{"empty", StatusCounts{}, 0, 0, 0, 0},
		{"no students", StatusCounts{Present: 2}, 3, 0, 0, 0},
		{"nobody came", StatusCounts{}, 2, 5, 10, 0},
		{"half", StatusCounts{Present: 3, Late: 2}, 2, 5, 5, 50},
		{"everyone", StatusCounts{Present: 4}, 1, 4, 0, 100},
		{"more records than expected", StatusCounts{Present: 7, Late: 1}, 1, 5, 0, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(tc.counts, tc.sessions, tc.students)
			assert.Equal(t, tc.wantAbsent, got.AbsentCount)
			assert.InDelta(t, tc.wantRate, got.AttendanceRate, 1e-9)
			assert.GreaterOrEqual(t, got.AttendanceRate, 0.0)
			assert.LessOrEqual(t, got.AttendanceRate, 100.0)

			attended := tc.counts.Present + tc.counts.Late
			expected := tc.sessions * tc.students
			if expected >= attended {
				assert.Equal(t, expected, attended+got.AbsentCount)
			}
			assert.Equal(t, attended, got.TotalAttendanceRecords)
			assert.Equal(t, got.AbsentCount, got.StatusCount[StatusAbsent])
			assert.Equal(t, tc.counts.Present, got.StatusCount[StatusPresent])
			assert.Equal(t, tc.counts.Late, got.StatusCount[StatusLate])
		})
	}
}

func TestStatusCountsIgnoresUnknownStatus(t *testing.T) {
	t.Parallel()

	var c StatusCounts
	c.Add(StatusPresent, 2)
	c.Add(StatusLate, 1)
	c.Add(StatusAbsent, 9)
	c.Add("EXCUSED", 4)
	assert.Equal(t, StatusCounts{Present: 2, Late: 1}, c)
}

// seedAttendance builds two sessions in the fixture course, a session in another course,
// three students, and records: ada PRESENT+LATE, grace PRESENT in session one, linus in
// the other course.
func seedAttendance(t *testing.T, f *fixture) (second, other Session, grace Student) {
	t.Helper()
	ctx := context.Background()

	grace = f.addStudent(t, "grace", "S-002")
	f.addStudent(t, "linus", "S-003")

	var err error
	second, err = f.repo.CreateSession(ctx, Session{
		CourseID:    f.course.ID,
		SessionDate: classStart.Add(48 * time.Hour).Truncate(24 * time.Hour),
		StartTime:   classStart.Add(48 * time.Hour),
		EndTime:     classStart.Add(49 * time.Hour),
	})
	require.NoError(t, err)

	otherCourse, err := f.repo.CreateCourse(ctx, Course{Code: "MA201", Title: "Linear Algebra"})
	require.NoError(t, err)
	other, err = f.repo.CreateSession(ctx, Session{
		CourseID:    otherCourse.ID,
		SessionDate: classStart.Truncate(24 * time.Hour),
		StartTime:   classStart,
		EndTime:     classStart.Add(time.Hour),
	})
	require.NoError(t, err)

	checkIn := func(sess Session, at time.Time, who string) {
		f.clock.Set(at.Add(-time.Minute))
		grant, err := f.svc.GenerateToken(ctx, sess.ID, 30)
		require.NoError(t, err)
		f.clock.Set(at)
		_, err = f.svc.CheckIn(ctx, sess.ID, grant.Token, who)
		require.NoError(t, err)
	}
	checkIn(f.session, classStart, "ada")
	checkIn(f.session, classStart.Add(5*time.Minute), "grace")
	checkIn(second, second.StartTime.Add(20*time.Minute), "ada")
	checkIn(other, classStart, "linus")
	return second, other, grace
}

func TestSystemStatistics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	seedAttendance(t, f)

	st, err := f.svc.SystemStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalSessions)
	assert.Equal(t, int64(3), st.TotalStudents)
	assert.Equal(t, int64(3), st.PresentCount)
	assert.Equal(t, int64(1), st.LateCount)
	assert.Equal(t, int64(5), st.AbsentCount)
	assert.InDelta(t, 4.0/9.0*100, st.AttendanceRate, 1e-9)
}

func TestSessionStatistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	seedAttendance(t, f)

	st, err := f.svc.SessionStatistics(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, f.session.ID, st.SessionID)
	assert.Equal(t, int64(3), st.TotalStudents)
	assert.Equal(t, int64(2), st.PresentCount)
	assert.Equal(t, int64(0), st.LateCount)
	assert.Equal(t, int64(1), st.AbsentCount)
	assert.True(t, st.SessionDate.Equal(f.session.SessionDate))

	_, err = f.svc.SessionStatistics(ctx, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStudentStatistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	seedAttendance(t, f)

	st, err := f.svc.StudentStatistics(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "S-001", st.StudentNumber)
	assert.Equal(t, "Ada Lovelace", st.StudentName)
	assert.Equal(t, int64(3), st.TotalSessions)
	assert.Equal(t, int64(1), st.PresentCount)
	assert.Equal(t, int64(1), st.LateCount)
	assert.Equal(t, int64(1), st.AbsentCount)

	_, err = f.svc.StudentStatistics(ctx, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCourseStatistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	seedAttendance(t, f)

	st, err := f.svc.CourseStatistics(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, st.CourseID)
	assert.Equal(t, int64(2), st.TotalSessions)
	assert.Equal(t, int64(3), st.TotalStudents)
	assert.Equal(t, int64(2), st.PresentCount)
	assert.Equal(t, int64(1), st.LateCount)
	assert.Equal(t, int64(3), st.AbsentCount)
	assert.InDelta(t, 50.0, st.AttendanceRate, 1e-9)

	_, err = f.svc.CourseStatistics(ctx, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCourseStatisticsWithoutSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	empty, err := f.repo.CreateCourse(ctx, Course{Code: "PH100", Title: "Physics"})
	require.NoError(t, err)

	st, err := f.svc.CourseStatistics(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.TotalSessions)
	assert.Equal(t, int64(0), st.AbsentCount)
	assert.Zero(t, st.AttendanceRate)
}
