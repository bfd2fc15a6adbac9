package attendance

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"time"
)

const tokenBytes = 32

// MaxValidityMinutes caps how long a single token may stay valid (one week).
const MaxValidityMinutes = 7 * 24 * 60

// TokenSource draws session tokens from an entropy source that is safe for concurrent use.
type TokenSource struct {
	r io.Reader
}

// NewTokenSource wraps r, normally crypto/rand.Reader.
func NewTokenSource(r io.Reader) *TokenSource {
	return &TokenSource{r: r}
}

// Next returns 32 random bytes encoded as unpadded URL-safe base64.
func (t *TokenSource) Next() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateToken issues a new token for the session, replacing any previous one.
// validityMinutes of zero selects the policy default.
func (s *Service) GenerateToken(ctx context.Context, sessionID string, validityMinutes int) (TokenGrant, error) {
	if validityMinutes < 0 || validityMinutes > MaxValidityMinutes {
		return TokenGrant{}, ErrInvalidValidity
	}
	validity := time.Duration(validityMinutes) * time.Minute
	if validityMinutes == 0 {
		validity = s.policy.DefaultValidity
	}

	unlock, err := s.locker.Lock(ctx, "session-token:"+sessionID)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()

	token, err := s.tokens.Next()
	if err != nil {
		return TokenGrant{}, err
	}
	expiresAt := s.clock().Add(validity)

	found, err := s.store.SetSessionToken(ctx, sessionID, token, expiresAt)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("store session token: %w", err)
	}
	if !found {
		return TokenGrant{}, notFound("Session")
	}

	return TokenGrant{
		SessionID:  sessionID,
		Token:      token,
		CheckInURL: s.checkInURL(sessionID, token),
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *Service) checkInURL(sessionID, token string) string {
	q := url.Values{}
	q.Set("sessionId", sessionID)
	q.Set("token", token)
	return s.policy.BaseURL + "/api/attendance/scan?" + q.Encode()
}
