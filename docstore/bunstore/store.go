// Package bunstore implements docstore.Client on a relational database
// through Bun. Documents live in a single table keyed by (index, kind,
// id) with the field map stored as JSON; index existence is tracked in a
// companion table so the missing-index failure modes of the contract can
// be reproduced faithfully. Cursors are held in process memory with a
// keep-alive expiry.
//
// Writes are immediately visible, so the refresh policy on requests is
// accepted and ignored.
package bunstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-userstore/docstore"
)

// DocumentModel is the Bun model for stored documents.
type DocumentModel struct {
	bun.BaseModel `bun:"table:documents"`

	Index  string `bun:"idx,pk"`
	Kind   string `bun:"kind,pk"`
	ID     string `bun:"id,pk"`
	Source []byte `bun:"source,type:blob"`
}

// IndexModel is the Bun model for index existence tracking.
type IndexModel struct {
	bun.BaseModel `bun:"table:indices"`

	Name string `bun:"name,pk"`
}

const defaultPageSize = 10

// Store implements docstore.Client over a Bun database handle.
type Store struct {
	db *bun.DB

	mu      sync.Mutex
	cursors map[string]*cursor
}

type cursor struct {
	index   string
	kind    string
	ids     []string
	size    int
	lastID  string
	expires time.Time
}

// New creates a Store over db. The schema must already exist; see Setup.
func New(db *bun.DB) *Store {
	return &Store{
		db:      db,
		cursors: map[string]*cursor{},
	}
}

// Setup creates the backing tables when they do not exist yet.
func (s *Store) Setup(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*DocumentModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create documents table")
	}
	if _, err := s.db.NewCreateTable().
		Model((*IndexModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create indices table")
	}
	return nil
}

// CreateIndex registers an index so subsequent operations see it as
// existing. Writing a document creates its index implicitly; this is for
// provisioning an index ahead of any document.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	_, err := s.db.NewInsert().
		Model(&IndexModel{Name: name}).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	return err
}

// DeleteIndex drops an index and every document in it.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	if _, err := s.db.NewDelete().
		Model((*DocumentModel)(nil)).
		Where("idx = ?", name).
		Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*IndexModel)(nil)).
		Where("name = ?", name).
		Exec(ctx)
	return err
}

func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	return s.db.NewSelect().
		Model((*IndexModel)(nil)).
		Where("name = ?", name).
		Exists(ctx)
}

// Get implements docstore.Client.
func (s *Store) Get(ctx context.Context, req docstore.GetRequest) (docstore.Document, error) {
	exists, err := s.indexExists(ctx, req.Index)
	if err != nil {
		return docstore.Document{}, err
	}
	if !exists {
		return docstore.Document{}, docstore.ErrIndexNotFound
	}

	var model DocumentModel
	err = s.db.NewSelect().
		Model(&model).
		Where("idx = ? AND kind = ? AND id = ?", req.Index, req.Kind, req.ID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{ID: req.ID}, nil
		}
		return docstore.Document{}, err
	}

	source, err := decodeSource(model.Source)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: req.ID, Found: true, Source: source}, nil
}

// Update implements docstore.Client. Doc is merged field by field into
// the stored source.
func (s *Store) Update(ctx context.Context, req docstore.UpdateRequest) (docstore.Result, error) {
	exists, err := s.indexExists(ctx, req.Index)
	if err != nil {
		return docstore.ResultNoop, err
	}
	if !exists {
		if req.Upsert != nil {
			return s.insertDocument(ctx, req.Index, req.Kind, req.ID, req.Upsert)
		}
		return docstore.ResultNoop, docstore.ErrIndexNotFound
	}

	var model DocumentModel
	err = s.db.NewSelect().
		Model(&model).
		Where("idx = ? AND kind = ? AND id = ?", req.Index, req.Kind, req.ID).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return docstore.ResultNoop, err
		}
		if req.Upsert != nil {
			return s.insertDocument(ctx, req.Index, req.Kind, req.ID, req.Upsert)
		}
		return docstore.ResultNoop, docstore.ErrDocumentMissing
	}

	source, err := decodeSource(model.Source)
	if err != nil {
		return docstore.ResultNoop, err
	}
	for field, value := range req.Doc {
		source[field] = value
	}

	encoded, err := json.Marshal(source)
	if err != nil {
		return docstore.ResultNoop, err
	}
	_, err = s.db.NewUpdate().
		Model((*DocumentModel)(nil)).
		Set("source = ?", encoded).
		Where("idx = ? AND kind = ? AND id = ?", req.Index, req.Kind, req.ID).
		Exec(ctx)
	if err != nil {
		return docstore.ResultNoop, err
	}
	return docstore.ResultUpdated, nil
}

// Index implements docstore.Client. The target index is created
// implicitly, mirroring engines that auto-create indices on write. The
// existence check and the upsert share one transaction so concurrent
// writers of the same id cannot both observe a missing document and
// report created.
func (s *Store) Index(ctx context.Context, req docstore.IndexRequest) (docstore.Result, error) {
	encoded, err := json.Marshal(req.Source)
	if err != nil {
		return docstore.ResultNoop, err
	}

	res := docstore.ResultNoop
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(&IndexModel{Name: req.Index}).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}

		existed, err := tx.NewSelect().
			Model((*DocumentModel)(nil)).
			Where("idx = ? AND kind = ? AND id = ?", req.Index, req.Kind, req.ID).
			Exists(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.NewInsert().
			Model(&DocumentModel{Index: req.Index, Kind: req.Kind, ID: req.ID, Source: encoded}).
			On("CONFLICT (idx, kind, id) DO UPDATE").
			Set("source = EXCLUDED.source").
			Exec(ctx); err != nil {
			return err
		}

		if existed {
			res = docstore.ResultUpdated
		} else {
			res = docstore.ResultCreated
		}
		return nil
	})
	if err != nil {
		return docstore.ResultNoop, err
	}
	return res, nil
}

func (s *Store) insertDocument(ctx context.Context, index, kind, id string, source map[string]any) (docstore.Result, error) {
	if _, err := s.Index(ctx, docstore.IndexRequest{Index: index, Kind: kind, ID: id, Source: source}); err != nil {
		return docstore.ResultNoop, err
	}
	// caller only reaches here when the document did not exist
	return docstore.ResultCreated, nil
}

// Delete implements docstore.Client.
func (s *Store) Delete(ctx context.Context, req docstore.DeleteRequest) (docstore.Result, error) {
	exists, err := s.indexExists(ctx, req.Index)
	if err != nil {
		return docstore.ResultNoop, err
	}
	if !exists {
		if req.IgnoreUnavailable {
			return docstore.ResultNotFound, nil
		}
		return docstore.ResultNoop, docstore.ErrIndexNotFound
	}

	res, err := s.db.NewDelete().
		Model((*DocumentModel)(nil)).
		Where("idx = ? AND kind = ? AND id = ?", req.Index, req.Kind, req.ID).
		Exec(ctx)
	if err != nil {
		return docstore.ResultNoop, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return docstore.ResultNoop, err
	}
	if affected == 0 {
		return docstore.ResultNotFound, nil
	}
	return docstore.ResultDeleted, nil
}

// Search implements docstore.Client using keyset pagination ordered by
// document id.
func (s *Store) Search(ctx context.Context, req docstore.SearchRequest) (docstore.Page, error) {
	exists, err := s.indexExists(ctx, req.Index)
	if err != nil {
		return docstore.Page{}, err
	}
	if !exists {
		if req.IgnoreUnavailable {
			return docstore.Page{}, nil
		}
		return docstore.Page{}, docstore.ErrIndexNotFound
	}

	size := req.Size
	if size <= 0 {
		size = defaultPageSize
	}

	hits, lastID, err := s.fetchPage(ctx, req.Index, req.Kind, req.IDs, "", size)
	if err != nil {
		return docstore.Page{}, err
	}

	page := docstore.Page{Hits: hits}
	if req.KeepAlive > 0 {
		page.CursorID = s.openCursor(&cursor{
			index:   req.Index,
			kind:    req.Kind,
			ids:     req.IDs,
			size:    size,
			lastID:  lastID,
			expires: time.Now().Add(req.KeepAlive),
		})
	}
	return page, nil
}

// Scroll implements docstore.Client.
func (s *Store) Scroll(ctx context.Context, cursorID string, keepAlive time.Duration) (docstore.Page, error) {
	cur, err := s.lookupCursor(cursorID)
	if err != nil {
		return docstore.Page{}, err
	}

	hits, lastID, err := s.fetchPage(ctx, cur.index, cur.kind, cur.ids, cur.lastID, cur.size)
	if err != nil {
		return docstore.Page{}, err
	}

	s.mu.Lock()
	if lastID != "" {
		cur.lastID = lastID
	}
	if keepAlive > 0 {
		cur.expires = time.Now().Add(keepAlive)
	}
	s.mu.Unlock()

	return docstore.Page{CursorID: cursorID, Hits: hits}, nil
}

// ClearCursor implements docstore.Client.
func (s *Store) ClearCursor(_ context.Context, cursorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cursors[cursorID]; !ok {
		return docstore.ErrCursorNotFound
	}
	delete(s.cursors, cursorID)
	return nil
}

func (s *Store) fetchPage(ctx context.Context, index, kind string, ids []string, afterID string, size int) ([]docstore.Document, string, error) {
	var models []DocumentModel
	q := s.db.NewSelect().
		Model(&models).
		Where("idx = ? AND kind = ?", index, kind)
	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	}
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	err := q.Order("id ASC").Limit(size).Scan(ctx)
	if err != nil {
		return nil, "", err
	}

	hits := make([]docstore.Document, 0, len(models))
	lastID := ""
	for _, model := range models {
		source, err := decodeSource(model.Source)
		if err != nil {
			return nil, "", err
		}
		hits = append(hits, docstore.Document{ID: model.ID, Found: true, Source: source})
		lastID = model.ID
	}
	return hits, lastID, nil
}

func (s *Store) openCursor(cur *cursor) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()
	s.cursors[id] = cur
	return id
}

func (s *Store) lookupCursor(id string) (*cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()
	cur, ok := s.cursors[id]
	if !ok {
		return nil, docstore.ErrCursorNotFound
	}
	return cur, nil
}

func (s *Store) pruneExpiredLocked() {
	now := time.Now()
	for id, cur := range s.cursors {
		if cur.expires.Before(now) {
			delete(s.cursors, id)
		}
	}
}

func decodeSource(raw []byte) (map[string]any, error) {
	source := map[string]any{}
	if len(raw) == 0 {
		return source, nil
	}
	if err := json.Unmarshal(raw, &source); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode document source")
	}
	return source, nil
}
