package attendance

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSourceEncoding(t *testing.T) {
	t.Parallel()

	src := NewTokenSource(bytes.NewReader(bytes.Repeat([]byte{0xfb}, tokenBytes)))
	tok, err := src.Next()
	require.NoError(t, err)

	assert.Len(t, tok, 43)
	assert.NotContains(t, tok, "=")
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xfb}, tokenBytes), raw)
}

func TestTokenSourceShortRead(t *testing.T) {
	t.Parallel()

	_, err := NewTokenSource(bytes.NewReader([]byte{1, 2, 3})).Next()
	require.Error(t, err)
}

func TestGenerateTokenSetsExpiryAndURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	issued := classStart.Add(-5 * time.Minute)
	grant := f.issueAt(t, issued, 10)

	assert.Equal(t, f.session.ID, grant.SessionID)
	assert.Equal(t, issued.Add(10*time.Minute), grant.ExpiresAt)

	u, err := url.Parse(grant.CheckInURL)
	require.NoError(t, err)
	assert.Equal(t, "attend.example", u.Host)
	assert.Equal(t, "/api/attendance/scan", u.Path)
	assert.Equal(t, f.session.ID, u.Query().Get("sessionId"))
	assert.Equal(t, grant.Token, u.Query().Get("token"))

	sess, err := f.repo.GetSession(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.NotNil(t, sess.QRToken)
	require.NotNil(t, sess.QRTokenExpiresAt)
	assert.Equal(t, grant.Token, *sess.QRToken)
	assert.True(t, grant.ExpiresAt.Equal(*sess.QRTokenExpiresAt))
}

func TestGenerateTokenDefaultsToTenMinutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	grant := f.issueAt(t, classStart, 0)
	assert.Equal(t, classStart.Add(10*time.Minute), grant.ExpiresAt)
}

func TestGenerateTokenRejectsNegativeValidity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.GenerateToken(context.Background(), f.session.ID, -1)
	require.ErrorIs(t, err, ErrInvalidValidity)
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestGenerateTokenRejectsValidityAboveCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	prior := f.issueAt(t, classStart, 10)

	for _, minutes := range []int{MaxValidityMinutes + 1, 200_000_000} {
		_, err := f.svc.GenerateToken(ctx, f.session.ID, minutes)
		require.ErrorIs(t, err, ErrInvalidValidity, minutes)
	}

	sess, err := f.repo.GetSession(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, prior.Token, *sess.QRToken)

	grant, err := f.svc.GenerateToken(ctx, f.session.ID, MaxValidityMinutes)
	require.NoError(t, err)
	assert.Equal(t, classStart.Add(7*24*time.Hour), grant.ExpiresAt)
}

func TestGenerateTokenUnknownSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.GenerateToken(context.Background(), "missing", 10)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Session not found", err.Error())
}

func TestRegenerateInvalidatesPreviousToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	first := f.issueAt(t, classStart.Add(-5*time.Minute), 10)
	second := f.issueAt(t, classStart.Add(-4*time.Minute), 10)
	require.NotEqual(t, first.Token, second.Token)

	v, err := f.svc.Verify(ctx, f.session.ID, first.Token, f.username)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonInvalidToken, v.Reason)

	_, err = f.svc.CheckIn(ctx, f.session.ID, first.Token, f.username)
	require.ErrorIs(t, err, ErrInvalidToken)

	v, err = f.svc.Verify(ctx, f.session.ID, second.Token, f.username)
	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestGenerateTokenUsesInjectedRandom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewService(f.repo, nil, Policy{}, WithClock(f.clock.Now),
		WithRandom(bytes.NewReader(make([]byte, tokenBytes))))
	grant, err := svc.GenerateToken(context.Background(), f.session.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("A", 43), grant.Token)
	assert.True(t, strings.HasPrefix(grant.CheckInURL, "/api/attendance/scan?"))
}
