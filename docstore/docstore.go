// Package docstore defines the boundary to the document store that backs
// the user store: point reads and writes addressed by (index, kind, id),
// plus a cursor-based paginated scan. Implementations translate these
// requests onto a concrete engine; the package itself carries no storage
// logic.
//
// Failure modes are part of the contract. Implementations must report a
// missing index through ErrIndexNotFound and a missing document on update
// through ErrDocumentMissing so callers can distinguish "nothing there"
// from infrastructure failure.
package docstore

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RefreshPolicy controls when a write becomes visible to searches.
type RefreshPolicy string

const (
	// RefreshDefault leaves visibility to the engine's background refresh.
	RefreshDefault RefreshPolicy = ""
	// RefreshImmediate forces the write to be visible before the call returns.
	RefreshImmediate RefreshPolicy = "immediate"
	// RefreshWaitFor blocks until the next scheduled refresh makes the write visible.
	RefreshWaitFor RefreshPolicy = "wait_for"
)

// Result describes what a write operation did to the target document.
type Result int

const (
	ResultNoop Result = iota
	ResultCreated
	ResultUpdated
	ResultDeleted
	ResultNotFound
)

func (r Result) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultUpdated:
		return "updated"
	case ResultDeleted:
		return "deleted"
	case ResultNotFound:
		return "not_found"
	default:
		return "noop"
	}
}

// Document is a raw stored document. Found is false when a point read did
// not match; Source is the stored field map.
type Document struct {
	ID     string
	Found  bool
	Source map[string]any
}

// Page is one batch of scan results. CursorID identifies the server-held
// cursor to fetch the next page from; a page with no hits marks the end of
// the scan.
type Page struct {
	CursorID string
	Hits     []Document
}

// GetRequest addresses a single document.
type GetRequest struct {
	Index string
	Kind  string
	ID    string
}

// UpdateRequest merges Doc into an existing document. When the document
// does not exist and Upsert is non-nil, Upsert is stored as a new document
// instead and the result is ResultCreated. Without an Upsert the update
// fails with ErrDocumentMissing.
type UpdateRequest struct {
	Index   string
	Kind    string
	ID      string
	Doc     map[string]any
	Upsert  map[string]any
	Refresh RefreshPolicy
}

// IndexRequest stores Source as the full document, replacing any previous
// version. The result reports whether the document was created or updated.
type IndexRequest struct {
	Index   string
	Kind    string
	ID      string
	Source  map[string]any
	Refresh RefreshPolicy
}

// DeleteRequest removes a single document. With IgnoreUnavailable set, a
// missing index yields ResultNotFound instead of ErrIndexNotFound.
type DeleteRequest struct {
	Index             string
	Kind              string
	ID                string
	Refresh           RefreshPolicy
	IgnoreUnavailable bool
}

// SearchRequest matches every document of Kind in Index, or exactly the
// documents named by IDs when non-empty. A non-zero KeepAlive opens a
// server-held cursor for paginated retrieval; the caller owns releasing it
// through ClearCursor. With IgnoreUnavailable set, a missing index yields
// an empty page instead of ErrIndexNotFound.
type SearchRequest struct {
	Index             string
	Kind              string
	IDs               []string
	Size              int
	KeepAlive         time.Duration
	IgnoreUnavailable bool
}

// Client is the document store surface the user store depends on. All
// calls honor ctx for cancellation of the request itself; server-side
// effects of an already-issued write are not rolled back on cancellation.
type Client interface {
	Get(ctx context.Context, req GetRequest) (Document, error)
	Update(ctx context.Context, req UpdateRequest) (Result, error)
	Index(ctx context.Context, req IndexRequest) (Result, error)
	Delete(ctx context.Context, req DeleteRequest) (Result, error)
	Search(ctx context.Context, req SearchRequest) (Page, error)
	Scroll(ctx context.Context, cursorID string, keepAlive time.Duration) (Page, error)
	ClearCursor(ctx context.Context, cursorID string) error
}

const (
	textCodeIndexNotFound   = "docstore_index_not_found"
	textCodeDocumentMissing = "docstore_document_missing"
	textCodeCursorNotFound  = "docstore_cursor_not_found"
)

// ErrIndexNotFound is reported when the target index does not exist.
var ErrIndexNotFound = goerrors.New("index not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeIndexNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDocumentMissing is reported when an update targets a document that
// does not exist and no upsert document was supplied.
var ErrDocumentMissing = goerrors.New("document missing", goerrors.CategoryNotFound).
	WithTextCode(textCodeDocumentMissing).
	WithCode(goerrors.CodeNotFound)

// ErrCursorNotFound is reported when a scroll or release names a cursor
// that was never opened, already released, or expired past its keep-alive.
var ErrCursorNotFound = goerrors.New("cursor not found or expired", goerrors.CategoryNotFound).
	WithTextCode(textCodeCursorNotFound).
	WithCode(goerrors.CodeNotFound)

// IsIndexNotFound reports whether err is, or wraps, ErrIndexNotFound.
func IsIndexNotFound(err error) bool {
	return errors.Is(err, ErrIndexNotFound)
}

// IsDocumentMissing reports whether err is, or wraps, ErrDocumentMissing.
func IsDocumentMissing(err error) bool {
	return errors.Is(err, ErrDocumentMissing)
}

// IsNotFound reports whether err signals a missing index or a missing
// document, the two absence conditions callers commonly treat alike.
func IsNotFound(err error) bool {
	return IsIndexNotFound(err) || IsDocumentMissing(err)
}
