package attendance

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
)

// classStart is the scheduled start of the fixture session.
var classStart = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	repo    *Repository
	svc     *Service
	clock   *fakeClock
	course  Course
	session Session
	student Student
	// username of the fixture student; "prof" is an admin without a student id.
	username string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Client)
	clock := &fakeClock{t: classStart.Add(-10 * time.Minute)}
	svc := NewService(repo, nil, Policy{BaseURL: "https://attend.example/"}, WithClock(clock.Now))

	course, err := repo.CreateCourse(ctx, Course{Code: "CS101", Title: "Intro to Programming"})
	require.NoError(t, err)
	student, err := repo.CreateStudent(ctx, Student{StudentNumber: "S-001", FullName: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertUser(ctx, User{Username: "ada", Role: RoleStudent, StudentID: &student.ID}))
	require.NoError(t, repo.UpsertUser(ctx, User{Username: "prof", Role: RoleAdmin}))

	sess, err := repo.CreateSession(ctx, Session{
		CourseID:    course.ID,
		SessionDate: classStart.Truncate(24 * time.Hour),
		StartTime:   classStart,
		EndTime:     classStart.Add(90 * time.Minute),
	})
	require.NoError(t, err)

	return &fixture{
		repo:     repo,
		svc:      svc,
		clock:    clock,
		course:   course,
		session:  sess,
		student:  student,
		username: "ada",
	}
}

// addStudent creates another student with a login.
func (f *fixture) addStudent(t *testing.T, username, number string) Student {
	t.Helper()
	ctx := context.Background()
	st, err := f.repo.CreateStudent(ctx, Student{StudentNumber: number, FullName: username})
	require.NoError(t, err)
	require.NoError(t, f.repo.UpsertUser(ctx, User{Username: username, Role: RoleStudent, StudentID: &st.ID}))
	return st
}

// issueAt generates a token for the fixture session at time at.
func (f *fixture) issueAt(t *testing.T, at time.Time, minutes int) TokenGrant {
	t.Helper()
	f.clock.Set(at)
	grant, err := f.svc.GenerateToken(context.Background(), f.session.ID, minutes)
	require.NoError(t, err)
	return grant
}
