package statscache

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/attendance"
)

// Source computes statistics from the store.
type Source interface {
	SystemStatistics(ctx context.Context) (attendance.Stats, error)
	SessionStatistics(ctx context.Context, sessionID string) (attendance.SessionStats, error)
	StudentStatistics(ctx context.Context, studentID string) (attendance.StudentStats, error)
	CourseStatistics(ctx context.Context, courseID string) (attendance.CourseStats, error)
}

const keyPrefix = "stats:"

// studentGenerationKey holds the generation every student snapshot must carry to be served.
const studentGenerationKey = keyPrefix + "students:generation"

// SystemKey names the system-wide snapshot.
func SystemKey() string { return keyPrefix + "system" }

// SessionKey names the snapshot for one session.
func SessionKey(id string) string { return keyPrefix + "session:" + id }

// StudentKey names the snapshot for one student.
func StudentKey(id string) string { return keyPrefix + "student:" + id }

// CourseKey names the snapshot for one course.
func CourseKey(id string) string { return keyPrefix + "course:" + id }

type studentEntry struct {
	Generation string                  `json:"generation"`
	Stats      attendance.StudentStats `json:"stats"`
}

// Reporter serves statistics through the cache. Cache failures are logged and
// the value is computed from the source instead.
type Reporter struct {
	src   Source
	cache Cache
	ttl   time.Duration
}

// NewReporter wraps src. A nil cache or non-positive ttl disables caching.
func NewReporter(src Source, cache Cache, ttl time.Duration) *Reporter {
	if cache == nil || ttl <= 0 {
		cache = Noop{}
	}
	return &Reporter{src: src, cache: cache, ttl: ttl}
}

// System returns the system-wide statistics.
func (r *Reporter) System(ctx context.Context) (attendance.Stats, error) {
	return cached(ctx, r, SystemKey(), nil, func() (attendance.Stats, error) {
		return r.src.SystemStatistics(ctx)
	})
}

// Session returns the statistics for one session.
func (r *Reporter) Session(ctx context.Context, id string) (attendance.SessionStats, error) {
	return cached(ctx, r, SessionKey(id), nil, func() (attendance.SessionStats, error) {
		return r.src.SessionStatistics(ctx, id)
	})
}

// Student returns the statistics for one student. Snapshots taken before the
// last ExpireStudents call are recomputed.
func (r *Reporter) Student(ctx context.Context, id string) (attendance.StudentStats, error) {
	gen := r.studentGeneration(ctx)
	entry, err := cached(ctx, r, StudentKey(id),
		func(e studentEntry) bool { return e.Generation == gen },
		func() (studentEntry, error) {
			st, err := r.src.StudentStatistics(ctx, id)
			return studentEntry{Generation: gen, Stats: st}, err
		})
	return entry.Stats, err
}

// Course returns the statistics for one course.
func (r *Reporter) Course(ctx context.Context, id string) (attendance.CourseStats, error) {
	return cached(ctx, r, CourseKey(id), nil, func() (attendance.CourseStats, error) {
		return r.src.CourseStatistics(ctx, id)
	})
}

// Invalidate drops the given snapshots.
func (r *Reporter) Invalidate(ctx context.Context, keys ...string) error {
	return r.cache.Delete(ctx, keys...)
}

// ExpireStudents retires every student snapshot at once. Student rates are
// measured against the total session count, so any new session changes them all.
func (r *Reporter) ExpireStudents(ctx context.Context) error {
	return r.cache.Set(ctx, studentGenerationKey, uuid.NewString(), 0)
}

func (r *Reporter) studentGeneration(ctx context.Context) string {
	var gen string
	if _, err := r.cache.Get(ctx, studentGenerationKey, &gen); err != nil {
		log.Printf("statscache: get %s: %v", studentGenerationKey, err)
	}
	return gen
}

// cached serves key from the cache when present and accepted by fresh (nil accepts all).
func cached[T any](ctx context.Context, r *Reporter, key string, fresh func(T) bool, load func() (T, error)) (T, error) {
	var out T
	hit, err := r.cache.Get(ctx, key, &out)
	if err != nil {
		log.Printf("statscache: get %s: %v", key, err)
	}
	if hit && (fresh == nil || fresh(out)) {
		return out, nil
	}
	out, err = load()
	if err != nil {
		// errors, including not-found, are never cached
		return out, err
	}
	if err := r.cache.Set(ctx, key, out, r.ttl); err != nil {
		log.Printf("statscache: set %s: %v", key, err)
	}
	return out, nil
}
