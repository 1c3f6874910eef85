package userstore

import (
	"context"

	"github.com/goliatone/go-userstore/docstore"
)

// GetUserAsync retrieves a single account, delivering the result through
// fn. A missing document and a missing backing index are indistinguishable
// to the caller: both deliver a nil user. Any other store failure is
// passed through unchanged.
func (s *Store) GetUserAsync(ctx context.Context, username string, fn func(*User, error)) {
	if !s.Started() {
		s.logger.Debug("attempted to get user [%s] before service was started", username)
		fn(nil, ErrNotStarted)
		return
	}

	go s.getUserAndPassword(ctx, username, func(record *userAndHash, err error) {
		if err != nil || record == nil {
			fn(nil, err)
			return
		}
		fn(record.user, nil)
	})
}

// GetUser is the blocking adapter over GetUserAsync.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func(*User, error)) {
		s.GetUserAsync(ctx, username, fn)
	})
}

// VerifyPassword checks the supplied plaintext against the account's
// stored hash. It returns the account only on a positive match; a missing
// account, an account with no stored hash, and a mismatch all yield nil
// without error.
func (s *Store) VerifyPassword(ctx context.Context, username, password string) (*User, error) {
	if !s.Started() {
		s.logger.Debug("attempted to verify user credentials for [%s] but service was not started", username)
		return nil, ErrNotStarted
	}

	record, err := awaitValue(s, ctx, func(ctx context.Context, fn func(*userAndHash, error)) {
		go s.getUserAndPassword(ctx, username, fn)
	})
	if err != nil {
		return nil, err
	}
	if record == nil || record.passwordHash == "" {
		return nil, nil
	}

	if err := s.hasher.ComparePasswordAndHash(password, record.passwordHash); err != nil {
		return nil, nil
	}

	return record.user, nil
}

// getUserAndPassword is the asynchronous core of the single-user read
// path. A missing index is a benign empty state, not an error.
func (s *Store) getUserAndPassword(ctx context.Context, username string, fn func(*userAndHash, error)) {
	doc, err := s.client.Get(ctx, docstore.GetRequest{
		Index: s.index,
		Kind:  UserKind,
		ID:    username,
	})
	if err != nil {
		if docstore.IsIndexNotFound(err) {
			s.logger.Debug("could not retrieve user [%s] because index does not exist", username)
			fn(nil, nil)
			return
		}
		s.logger.Error("failed to retrieve user [%s]: %v", username, err)
		fn(nil, err)
		return
	}
	if !doc.Found {
		fn(nil, nil)
		return
	}

	fn(decodeUser(s.logger, doc.ID, doc.Source), nil)
}
