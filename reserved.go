package userstore

import (
	"context"

	"github.com/goliatone/go-userstore/docstore"
)

// maxReservedUsers is the expected ceiling on built-in accounts. The
// reserved partition is read in a single unpaged request, so a larger
// population would silently truncate; we warn when it grows past this.
const maxReservedUsers = 10

// ReservedUserInfoAsync retrieves the stored override record for a
// built-in account. No record, or no backing index, delivers nil without
// error; a record that is present but malformed is a hard failure
// because guessing at credential state is worse than refusing.
func (s *Store) ReservedUserInfoAsync(ctx context.Context, username string, fn func(*ReservedUserInfo, error)) {
	if !s.Started() {
		s.logger.Debug("attempted to get reserved user [%s] before service was started", username)
		fn(nil, ErrNotStarted)
		return
	}

	go s.getReservedUserInfo(ctx, username, fn)
}

// GetReservedUserInfo is the blocking adapter over ReservedUserInfoAsync.
func (s *Store) GetReservedUserInfo(ctx context.Context, username string) (*ReservedUserInfo, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func(*ReservedUserInfo, error)) {
		s.ReservedUserInfoAsync(ctx, username, fn)
	})
}

func (s *Store) getReservedUserInfo(ctx context.Context, username string, fn func(*ReservedUserInfo, error)) {
	doc, err := s.client.Get(ctx, docstore.GetRequest{
		Index: s.index,
		Kind:  ReservedUserKind,
		ID:    username,
	})
	if err != nil {
		if docstore.IsIndexNotFound(err) {
			fn(nil, nil)
			return
		}
		s.logger.Error("failed to retrieve reserved user [%s]: %v", username, err)
		fn(nil, err)
		return
	}
	if !doc.Found {
		fn(nil, nil)
		return
	}

	info, err := decodeReservedUserInfo(username, doc.Source)
	if err != nil {
		s.logger.Error("invalid reserved user record for [%s]: %v", username, err)
		fn(nil, err)
		return
	}
	fn(info, nil)
}

// AllReservedUserInfoAsync retrieves every stored override record in the
// reserved partition, keyed by username. A missing index yields an empty
// map. Any single malformed record fails the whole call.
func (s *Store) AllReservedUserInfoAsync(ctx context.Context, fn func(map[string]*ReservedUserInfo, error)) {
	if !s.Started() {
		s.logger.Debug("attempted to get all reserved users before service was started")
		fn(nil, ErrNotStarted)
		return
	}

	go s.getAllReservedUserInfo(ctx, fn)
}

// AllReservedUserInfo is the blocking adapter over AllReservedUserInfoAsync.
func (s *Store) AllReservedUserInfo(ctx context.Context) (map[string]*ReservedUserInfo, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func(map[string]*ReservedUserInfo, error)) {
		s.AllReservedUserInfoAsync(ctx, fn)
	})
}

func (s *Store) getAllReservedUserInfo(ctx context.Context, fn func(map[string]*ReservedUserInfo, error)) {
	page, err := s.client.Search(ctx, docstore.SearchRequest{
		Index:             s.index,
		Kind:              ReservedUserKind,
		Size:              maxReservedUsers * 10,
		IgnoreUnavailable: true,
	})
	if err != nil {
		if docstore.IsIndexNotFound(err) {
			fn(map[string]*ReservedUserInfo{}, nil)
			return
		}
		s.logger.Error("failed to retrieve reserved users: %v", err)
		fn(nil, err)
		return
	}
	if len(page.Hits) > maxReservedUsers {
		s.logger.Warn("found [%d] reserved users, expected at most [%d]", len(page.Hits), maxReservedUsers)
	}

	infos := make(map[string]*ReservedUserInfo, len(page.Hits))
	for _, hit := range page.Hits {
		info, err := decodeReservedUserInfo(hit.ID, hit.Source)
		if err != nil {
			s.logger.Error("invalid reserved user record for [%s]: %v", hit.ID, err)
			fn(nil, err)
			return
		}
		infos[hit.ID] = info
	}

	fn(infos, nil)
}
