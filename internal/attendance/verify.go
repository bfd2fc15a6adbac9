package attendance

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"
)

// Reason names why a presented token was rejected.
type Reason string

const (
	ReasonInvalidToken Reason = "invalid token"
	ReasonExpiredToken Reason = "expired token"
)

const validTokenMessage = "Valid QR token"

// checkToken is the single token rule shared by Verify and CheckIn. A missing expiry
// fails closed.
func checkToken(sess *Session, presented string, now time.Time) error {
	if sess.QRToken == nil || subtle.ConstantTimeCompare([]byte(*sess.QRToken), []byte(presented)) != 1 {
		return ErrInvalidToken
	}
	if sess.QRTokenExpiresAt == nil || !sess.QRTokenExpiresAt.After(now) {
		return ErrTokenExpired
	}
	return nil
}

// Verify checks a presented token without recording anything. It also reports whether
// the caller already has a record for the session; callers that are not students get false.
func (s *Service) Verify(ctx context.Context, sessionID, token, username string) (Verification, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Verification{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return Verification{}, notFound("Session")
	}

	v := Verification{
		Valid:       true,
		Message:     validTokenMessage,
		SessionID:   sess.ID,
		CourseCode:  sess.CourseCode,
		CourseTitle: sess.CourseTitle,
		SessionDate: sess.SessionDate,
		ExpiresAt:   sess.QRTokenExpiresAt,
	}
	switch err := checkToken(sess, token, s.clock()); err {
	case nil:
	case ErrInvalidToken:
		v.Valid, v.Reason, v.Message = false, ReasonInvalidToken, ErrInvalidToken.Msg
	case ErrTokenExpired:
		v.Valid, v.Reason, v.Message = false, ReasonExpiredToken, ErrTokenExpired.Msg
	}

	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return Verification{}, fmt.Errorf("load user: %w", err)
	}
	if user != nil && user.StudentID != nil {
		v.AlreadyCheckedIn, err = s.store.HasAttendance(ctx, sess.ID, *user.StudentID)
		if err != nil {
			return Verification{}, fmt.Errorf("check attendance: %w", err)
		}
	}
	return v, nil
}
