package userstore

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the store needs. Inject your own
// with WithLogger; the default writes to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config supplies the tunables the store reads once during Start.
type Config interface {
	// GetScrollSize is the page size for bulk scans.
	GetScrollSize() int
	// GetScrollKeepAlive is how long a scan cursor stays valid between pages.
	GetScrollKeepAlive() time.Duration
}

// StaticConfig is a Config backed by plain values.
type StaticConfig struct {
	ScrollSize      int
	ScrollKeepAlive time.Duration
}

func (c StaticConfig) GetScrollSize() int                { return c.ScrollSize }
func (c StaticConfig) GetScrollKeepAlive() time.Duration { return c.ScrollKeepAlive }

// DefaultConfig returns the stock tunables: 1000 documents per page, 10s
// cursor keep-alive.
func DefaultConfig() StaticConfig {
	return StaticConfig{
		ScrollSize:      1000,
		ScrollKeepAlive: 10 * time.Second,
	}
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// CacheInvalidator broadcasts "forget any cached credentials for username"
// to every cache holder after a mutation. The broadcast is best effort
// across the cluster but is awaited locally before the mutation's result
// is delivered to the caller.
type CacheInvalidator interface {
	ClearCachedUser(ctx context.Context, username string) error
}

// CacheInvalidatorFunc adapts a function to the CacheInvalidator interface.
type CacheInvalidatorFunc func(ctx context.Context, username string) error

func (f CacheInvalidatorFunc) ClearCachedUser(ctx context.Context, username string) error {
	return f(ctx, username)
}

type noopInvalidator struct{}

func (noopInvalidator) ClearCachedUser(context.Context, string) error { return nil }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERSTORE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERSTORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERSTORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERSTORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
