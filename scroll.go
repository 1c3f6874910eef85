package userstore

import (
	"context"
	"time"

	"github.com/goliatone/go-userstore/docstore"
)

// GetUsersAsync retrieves accounts in bulk. With no usernames every
// regular account matches; otherwise retrieval is restricted to exactly
// those ids. Entries that fail to decode are skipped. A missing backing
// index yields an empty list, not an error.
func (s *Store) GetUsersAsync(ctx context.Context, usernames []string, fn func([]*User, error)) {
	if !s.Started() {
		s.logger.Debug("attempted to get users before service was started")
		fn(nil, ErrNotStarted)
		return
	}

	go func() {
		fn(s.collectUsers(ctx, usernames))
	}()
}

// GetUsers is the blocking adapter over GetUsersAsync.
func (s *Store) GetUsers(ctx context.Context, usernames []string) ([]*User, error) {
	return awaitValue(s, ctx, func(ctx context.Context, fn func([]*User, error)) {
		s.GetUsersAsync(ctx, usernames, fn)
	})
}

// collectUsers drives a cursor-based scan of the regular-account
// partition. Pages are fetched sequentially; the cursor is released on
// every exit path, including a store failure partway through, so a
// failure on page N still releases the cursor opened by page N-1.
func (s *Store) collectUsers(ctx context.Context, usernames []string) ([]*User, error) {
	scroll := &userScroll{
		client:    s.client,
		logger:    s.logger,
		index:     s.index,
		ids:       usernames,
		size:      s.scrollSize,
		keepAlive: s.scrollKeepAlive,
	}
	// release must run even when the scan was aborted by cancellation
	defer scroll.release(context.WithoutCancel(ctx))

	users := []*User{}
	for {
		hits, err := scroll.next(ctx)
		if err != nil {
			if docstore.IsIndexNotFound(err) {
				s.logger.Debug("could not retrieve users because index does not exist")
				return []*User{}, nil
			}
			return nil, err
		}
		if len(hits) == 0 {
			return users, nil
		}

		for _, hit := range hits {
			if record := decodeUser(s.logger, hit.ID, hit.Source); record != nil {
				users = append(users, record.user)
			}
		}
	}
}

// userScroll is a lazy pager over the store's cursor API. next returns
// one page of raw hits at a time; a page with no hits ends the scan.
// release is idempotent and clears whichever cursor is currently open.
type userScroll struct {
	client    docstore.Client
	logger    Logger
	index     string
	ids       []string
	size      int
	keepAlive time.Duration

	cursorID string
	started  bool
}

func (sc *userScroll) next(ctx context.Context) ([]docstore.Document, error) {
	if !sc.started {
		sc.started = true
		page, err := sc.client.Search(ctx, docstore.SearchRequest{
			Index:             sc.index,
			Kind:              UserKind,
			IDs:               sc.ids,
			Size:              sc.size,
			KeepAlive:         sc.keepAlive,
			IgnoreUnavailable: true,
		})
		if err != nil {
			return nil, err
		}
		sc.cursorID = page.CursorID
		return page.Hits, nil
	}

	if sc.cursorID == "" {
		return nil, nil
	}

	page, err := sc.client.Scroll(ctx, sc.cursorID, sc.keepAlive)
	if err != nil {
		// the previous page's cursor stays recorded so release can clear it
		return nil, err
	}
	if page.CursorID != "" {
		sc.cursorID = page.CursorID
	}
	return page.Hits, nil
}

func (sc *userScroll) release(ctx context.Context) {
	if sc.cursorID == "" {
		return
	}
	if err := sc.client.ClearCursor(ctx, sc.cursorID); err != nil {
		// not much to do here except warn about it
		sc.logger.Warn("failed to clear cursor [%s]: %v", sc.cursorID, err)
	}
	sc.cursorID = ""
}
