package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckIn records attendance for the student behind username. Every rule is checked
// again here; a prior Verify call is not trusted.
func (s *Service) CheckIn(ctx context.Context, sessionID, token, username string) (CheckInResult, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return CheckInResult{}, ErrUnknownUser
	}
	if user.StudentID == nil {
		return CheckInResult{}, ErrNotStudent
	}
	student, err := s.store.GetStudent(ctx, *user.StudentID)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return CheckInResult{}, notFound("Student")
	}

	unlock, err := s.locker.Lock(ctx, "checkin:"+sessionID+":"+student.ID)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("lock check-in: %w", err)
	}
	defer unlock()

	var res CheckInResult
	err = s.store.InTx(ctx, func(tx Store) error {
		sess, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if sess == nil {
			return notFound("Session")
		}

		now := s.clock()
		if err := checkToken(sess, token, now); err != nil {
			return err
		}

		exists, err := tx.HasAttendance(ctx, sess.ID, student.ID)
		if err != nil {
			return fmt.Errorf("check attendance: %w", err)
		}
		if exists {
			return ErrAlreadyCheckedIn
		}

		if now.Before(sess.StartTime.Add(-s.policy.EarlyWindow)) {
			return ErrNotOpenYet
		}

		rec, err := tx.InsertAttendance(ctx, Record{
			ID:            uuid.NewString(),
			SessionID:     sess.ID,
			StudentID:     student.ID,
			Status:        deriveStatus(sess.StartTime, now, s.policy.LateAfter),
			CheckedAt:     now,
			ProvidedToken: token,
		})
		if err != nil {
			return err
		}

		res = CheckInResult{
			Attendance: AttendanceView{
				ID:            rec.ID,
				SessionID:     rec.SessionID,
				StudentID:     student.ID,
				StudentNumber: student.StudentNumber,
				StudentName:   student.FullName,
				Status:        rec.Status,
				CheckedAt:     rec.CheckedAt,
			},
			CourseID: sess.CourseID,
		}
		return nil
	})
	if err != nil {
		return CheckInResult{}, err
	}
	return res, nil
}

// deriveStatus counts whole minutes since the scheduled start; anything past lateAfter is LATE.
func deriveStatus(start, now time.Time, lateAfter time.Duration) Status {
	if now.Sub(start).Truncate(time.Minute) > lateAfter {
		return StatusLate
	}
	return StatusPresent
}
