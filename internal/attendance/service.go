package attendance

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"time"
)

// Policy holds the time rules applied to token issuance and check-in.
type Policy struct {
	// DefaultValidity applies when a token is requested without a validity.
	DefaultValidity time.Duration
	// EarlyWindow is how long before the scheduled start check-in opens.
	EarlyWindow time.Duration
	// LateAfter is the elapsed time after start beyond which a check-in is LATE.
	LateAfter time.Duration
	// BaseURL prefixes the check-in URL handed out with a token.
	BaseURL string
}

// DefaultPolicy mirrors the rules students are told about: 10 minute tokens,
// check-in opens 30 minutes early, late after 15 minutes.
func DefaultPolicy() Policy {
	return Policy{
		DefaultValidity: 10 * time.Minute,
		EarlyWindow:     30 * time.Minute,
		LateAfter:       15 * time.Minute,
	}
}

// Service coordinates token issuance, verification, check-in and statistics.
type Service struct {
	store  Store
	locker Locker
	tokens *TokenSource
	policy Policy
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom replaces the entropy source used for tokens.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.tokens = NewTokenSource(r) }
}

// NewService creates a service backed by a store. Zero policy values fall back to DefaultPolicy.
func NewService(store Store, locker Locker, policy Policy, opts ...Option) *Service {
	def := DefaultPolicy()
	if policy.DefaultValidity <= 0 {
		policy.DefaultValidity = def.DefaultValidity
	}
	if policy.EarlyWindow <= 0 {
		policy.EarlyWindow = def.EarlyWindow
	}
	if policy.LateAfter <= 0 {
		policy.LateAfter = def.LateAfter
	}
	policy.BaseURL = strings.TrimRight(policy.BaseURL, "/")
	if locker == nil {
		locker = noLock{}
	}
	s := &Service{
		store:  store,
		locker: locker,
		tokens: NewTokenSource(rand.Reader),
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

type noLock struct{}

func (noLock) Lock(ctx context.Context, key string) (func(), error) { return func() {}, ctx.Err() }
