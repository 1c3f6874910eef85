package userstore

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-userstore/docstore"
)

// ChangePasswordAsync replaces the stored password hash of a regular or
// reserved account. A reserved account with no document yet is created
// with the given hash and enabled=true; a regular account must already
// exist. On success the user's cached credentials are invalidated before
// fn fires.
func (s *Store) ChangePasswordAsync(ctx context.Context, req ChangePasswordRequest, fn func(error)) {
	if !s.Started() {
		fn(ErrNotStarted)
		return
	}
	if err := req.Validate(); err != nil {
		fn(goerrors.Wrap(err, goerrors.CategoryValidation, "invalid change password request"))
		return
	}

	go s.changePassword(ctx, req, fn)
}

// ChangePassword is the blocking adapter over ChangePasswordAsync.
func (s *Store) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return await(s, ctx, func(ctx context.Context, fn func(error)) {
		s.ChangePasswordAsync(ctx, req, fn)
	})
}

func (s *Store) changePassword(ctx context.Context, req ChangePasswordRequest, fn func(error)) {
	kind := UserKind
	if s.IsReserved(req.Username) {
		kind = ReservedUserKind
	}

	_, err := s.client.Update(ctx, docstore.UpdateRequest{
		Index:   s.index,
		Kind:    kind,
		ID:      req.Username,
		Doc:     map[string]any{fieldPassword: req.PasswordHash},
		Refresh: req.Refresh,
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			if kind == ReservedUserKind {
				s.createReservedUser(ctx, req.Username, req.PasswordHash, req.Refresh, fn)
				return
			}
			s.logger.Debug("failed to change password for user [%s]: %v", req.Username, err)
			fn(newValidationError("user must exist in order to change password"))
			return
		}
		fn(err)
		return
	}

	fn(s.clearCache(ctx, req.Username))
}

// createReservedUser seeds the reserved-partition document for a built-in
// account that has never been explicitly created, enabled by default.
func (s *Store) createReservedUser(ctx context.Context, username, passwordHash string, refresh docstore.RefreshPolicy, fn func(error)) {
	_, err := s.client.Index(ctx, docstore.IndexRequest{
		Index: s.index,
		Kind:  ReservedUserKind,
		ID:    username,
		Source: map[string]any{
			fieldPassword: passwordHash,
			fieldEnabled:  true,
		},
		Refresh: refresh,
	})
	if err != nil {
		fn(err)
		return
	}

	fn(s.clearCache(ctx, username))
}

// PutUserAsync creates or updates a regular account. A request without a
// password hash is an update of the non-credential fields and fails with a
// validation error when the account does not exist; a request with a hash
// is a full upsert. fn reports whether a new document was created. Either
// branch concludes with cache invalidation.
func (s *Store) PutUserAsync(ctx context.Context, req PutUserRequest, fn func(created bool, err error)) {
	if !s.Started() {
		fn(false, ErrNotStarted)
		return
	}
	if err := req.Validate(); err != nil {
		fn(false, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid put user request"))
		return
	}

	if req.PasswordHash == "" {
		go s.updateUserWithoutPassword(ctx, req, fn)
	} else {
		go s.indexUser(ctx, req, fn)
	}
}

// PutUser is the blocking adapter over PutUserAsync.
func (s *Store) PutUser(ctx context.Context, req PutUserRequest) (bool, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func(bool, error)) {
		s.PutUserAsync(ctx, req, fn)
	})
}

// updateUserWithoutPassword handles updating a user that should already
// exist where their password does not change.
func (s *Store) updateUserWithoutPassword(ctx context.Context, req PutUserRequest, fn func(bool, error)) {
	_, err := s.client.Update(ctx, docstore.UpdateRequest{
		Index:   s.index,
		Kind:    UserKind,
		ID:      req.Username,
		Doc:     encodeUserFields(req),
		Refresh: req.Refresh,
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			// if the index doesn't exist we can never update a user
			// if the document doesn't exist, then this update is not valid
			s.logger.Debug("failed to update user document with username [%s]: %v", req.Username, err)
			fn(false, newValidationError("password must be specified unless you are updating an existing user"))
			return
		}
		fn(false, err)
		return
	}

	fn(false, s.clearCache(ctx, req.Username))
}

func (s *Store) indexUser(ctx context.Context, req PutUserRequest, fn func(bool, error)) {
	source := encodeUserFields(req)
	source[fieldPassword] = req.PasswordHash

	res, err := s.client.Index(ctx, docstore.IndexRequest{
		Index:   s.index,
		Kind:    UserKind,
		ID:      req.Username,
		Source:  source,
		Refresh: req.Refresh,
	})
	if err != nil {
		fn(false, err)
		return
	}

	fn(res == docstore.ResultCreated, s.clearCache(ctx, req.Username))
}

// SetEnabledAsync updates the enabled flag of an account. A reserved
// account with no document yet is created with the compiled-in default
// placeholder hash and the requested flag; a regular account must already
// exist. Concludes with cache invalidation.
func (s *Store) SetEnabledAsync(ctx context.Context, username string, enabled bool, refresh docstore.RefreshPolicy, fn func(error)) {
	if !s.Started() {
		fn(ErrNotStarted)
		return
	}

	if s.IsReserved(username) {
		go s.setReservedUserEnabled(ctx, username, enabled, refresh, fn)
	} else {
		go s.setRegularUserEnabled(ctx, username, enabled, refresh, fn)
	}
}

// SetEnabled is the blocking adapter over SetEnabledAsync.
func (s *Store) SetEnabled(ctx context.Context, username string, enabled bool, refresh docstore.RefreshPolicy) error {
	return await(s, ctx, func(ctx context.Context, fn func(error)) {
		s.SetEnabledAsync(ctx, username, enabled, refresh, fn)
	})
}

func (s *Store) setRegularUserEnabled(ctx context.Context, username string, enabled bool, refresh docstore.RefreshPolicy, fn func(error)) {
	_, err := s.client.Update(ctx, docstore.UpdateRequest{
		Index:   s.index,
		Kind:    UserKind,
		ID:      username,
		Doc:     map[string]any{fieldEnabled: enabled},
		Refresh: refresh,
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			verb := "disabled"
			if enabled {
				verb = "enabled"
			}
			s.logger.Debug("failed to %s user [%s]: %v", verb, username, err)
			fn(newValidationError("only existing users can be " + verb))
			return
		}
		fn(err)
		return
	}

	fn(s.clearCache(ctx, username))
}

func (s *Store) setReservedUserEnabled(ctx context.Context, username string, enabled bool, refresh docstore.RefreshPolicy, fn func(error)) {
	_, err := s.client.Update(ctx, docstore.UpdateRequest{
		Index: s.index,
		Kind:  ReservedUserKind,
		ID:    username,
		Doc:   map[string]any{fieldEnabled: enabled},
		Upsert: map[string]any{
			fieldPassword: DefaultReservedPasswordHash(),
			fieldEnabled:  enabled,
		},
		Refresh: refresh,
	})
	if err != nil {
		fn(err)
		return
	}

	fn(s.clearCache(ctx, username))
}

// DeleteUserAsync removes a regular account, reporting whether a document
// actually existed. A missing index is tolerated and counts as "did not
// exist". Cache invalidation runs regardless of whether anything was
// removed.
func (s *Store) DeleteUserAsync(ctx context.Context, req DeleteUserRequest, fn func(found bool, err error)) {
	if !s.Started() {
		fn(false, ErrNotStarted)
		return
	}
	if err := req.Validate(); err != nil {
		fn(false, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid delete user request"))
		return
	}

	go func() {
		res, err := s.client.Delete(ctx, docstore.DeleteRequest{
			Index:             s.index,
			Kind:              UserKind,
			ID:                req.Username,
			Refresh:           req.Refresh,
			IgnoreUnavailable: true,
		})
		if err != nil {
			if docstore.IsIndexNotFound(err) {
				res = docstore.ResultNotFound
			} else {
				fn(false, err)
				return
			}
		}

		fn(res == docstore.ResultDeleted, s.clearCache(ctx, req.Username))
	}()
}

// DeleteUser is the blocking adapter over DeleteUserAsync.
func (s *Store) DeleteUser(ctx context.Context, req DeleteUserRequest) (bool, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func(bool, error)) {
		s.DeleteUserAsync(ctx, req, fn)
	})
}
