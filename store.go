package userstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-userstore/docstore"
)

// DefaultWaitTimeout bounds the blocking adapters. A wait that exceeds it
// reports ErrWaitTimeout; the underlying asynchronous operation keeps
// running and may still take effect.
const DefaultWaitTimeout = 30 * time.Second

// Store manages user account records persisted in a document store. It
// performs no caching and no polling itself; mutations make a best effort
// attempt to clear cached copies of the modified user on every cache
// holder before reporting back.
//
// The store must be started through Start before any operation is
// accepted; the orchestrator decides when by consulting CanStart.
type Store struct {
	client      docstore.Client
	index       string
	config      Config
	logger      Logger
	hasher      PasswordAuthenticator
	invalidator CacheInvalidator
	reserved    map[string]struct{}
	waitTimeout time.Duration

	lifecycle   lifecycle
	indexExists atomic.Bool

	// tunables, loaded once during Start
	scrollSize      int
	scrollKeepAlive time.Duration
}

// Option customizes store construction.
type Option func(*Store)

// WithLogger overrides the default stdout logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig sets the tunables provider read during Start.
func WithConfig(config Config) Option {
	return func(s *Store) {
		if config != nil {
			s.config = config
		}
	}
}

// WithIndexName overrides the backing index name.
func WithIndexName(index string) Option {
	return func(s *Store) {
		if index != "" {
			s.index = index
		}
	}
}

// WithPasswordAuthenticator overrides the bcrypt default used by
// VerifyPassword.
func WithPasswordAuthenticator(hasher PasswordAuthenticator) Option {
	return func(s *Store) {
		if hasher != nil {
			s.hasher = hasher
		}
	}
}

// WithCacheInvalidator sets the broadcast channel used to clear cached
// credentials after mutations. Without one, invalidation is a no-op.
func WithCacheInvalidator(invalidator CacheInvalidator) Option {
	return func(s *Store) {
		if invalidator != nil {
			s.invalidator = invalidator
		}
	}
}

// WithReservedUsernames registers the built-in account names that get
// reserved-partition semantics: upsert-as-create on password change and
// enable/disable before the account was ever explicitly created. The set
// is expected to stay small (at most ten or so names).
func WithReservedUsernames(usernames ...string) Option {
	return func(s *Store) {
		for _, username := range usernames {
			if username != "" {
				s.reserved[username] = struct{}{}
			}
		}
	}
}

// WithWaitTimeout overrides the bounded wait of the blocking adapters.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// New creates a Store over the given document store client.
func New(client docstore.Client, opts ...Option) *Store {
	s := &Store{
		client:      client,
		index:       DefaultIndexName,
		config:      DefaultConfig(),
		logger:      defLogger{},
		hasher:      BcryptAuthenticator{},
		invalidator: noopInvalidator{},
		reserved:    map[string]struct{}{},
		waitTimeout: DefaultWaitTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start loads the configured tunables and transitions the store to the
// started state. Calling Start outside the initialized state is a no-op.
// A configuration failure marks the store failed; it then only leaves that
// state through Reset.
func (s *Store) Start() error {
	if !s.lifecycle.advance(StateInitialized, StateStarting) {
		s.logger.Debug("start ignored in state [%s]", s.State())
		return nil
	}

	size := s.config.GetScrollSize()
	keepAlive := s.config.GetScrollKeepAlive()
	if size <= 0 || keepAlive <= 0 {
		s.lifecycle.fail()
		s.logger.Error("failed to start user store: invalid scroll configuration (size=%d keep_alive=%s)", size, keepAlive)
		return newValidationError("scroll size and keep alive must be positive")
	}

	s.scrollSize = size
	s.scrollKeepAlive = keepAlive
	s.lifecycle.advance(StateStarting, StateStarted)

	return nil
}

// Stop transitions a started store through stopping to stopped. Both
// states are published separately and are observable in that order.
func (s *Store) Stop() {
	if s.lifecycle.advance(StateStarted, StateStopping) {
		s.lifecycle.advance(StateStopping, StateStopped)
	}
}

// Reset returns a stopped or failed store to the initialized state and
// clears the store-existence flag. It exists as an escape hatch for test
// harnesses and is not part of the normal lifecycle.
func (s *Store) Reset() error {
	if s.lifecycle.advance(StateStopped, StateInitialized) ||
		s.lifecycle.advance(StateFailed, StateInitialized) {
		s.indexExists.Store(false)
		return nil
	}

	// clone so metadata never lands on the shared sentinel
	clone := ErrInvalidTransition.Clone()
	if clone == nil {
		return ErrInvalidTransition
	}
	clone.Source = ErrInvalidTransition
	return clone.WithMetadata(map[string]any{
		"state": s.State().String(),
	})
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	return s.lifecycle.current()
}

// Started reports whether operations are currently accepted.
func (s *Store) Started() bool {
	return s.State() == StateStarted
}

// IsReserved reports whether username names one of the registered
// built-in accounts.
func (s *Store) IsReserved(username string) bool {
	_, ok := s.reserved[username]
	return ok
}

// clearCache broadcasts a cache clear for username after a committed
// mutation. Failure is reported as a CacheInvalidationError but the
// mutation stands either way.
func (s *Store) clearCache(ctx context.Context, username string) error {
	if err := s.invalidator.ClearCachedUser(ctx, username); err != nil {
		s.logger.Error("unable to clear cache for user [%s]: %v", username, err)
		return &CacheInvalidationError{Username: username, Err: err}
	}
	return nil
}

// result carries a callback outcome through the bounded-wait channel.
type result[T any] struct {
	value T
	err   error
}

// awaitValue issues an asynchronous operation and blocks the caller until
// its callback fires, ctx is done, or the wait ceiling elapses. The
// operation itself runs on a detached context: a timed-out wait stops
// waiting, it does not cancel the work, which may still complete later
// and have effects.
func awaitValue[T any](s *Store, ctx context.Context, issue func(ctx context.Context, fn func(T, error))) (T, error) {
	ch := make(chan result[T], 1)
	issue(context.WithoutCancel(ctx), func(value T, err error) {
		ch <- result[T]{value: value, err: err}
	})

	timer := time.NewTimer(s.waitTimeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, ErrWaitTimeout
	}
}

// await is awaitValue for operations that only report an error.
func await(s *Store, ctx context.Context, issue func(ctx context.Context, fn func(error))) error {
	_, err := awaitValue(s, ctx, func(ctx context.Context, fn func(struct{}, error)) {
		issue(ctx, func(err error) { fn(struct{}{}, err) })
	})
	return err
}
