package userstore

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/goliatone/go-userstore/docstore"
)

// DefaultIndexName is the index holding both user partitions unless
// overridden with WithIndexName.
const DefaultIndexName = ".users"

// Document kinds. Regular and reserved users live in disjoint partitions
// of the same index; the same literal username means different accounts in
// each.
const (
	UserKind         = "user"
	ReservedUserKind = "reserved-user"
)

// Stored field names shared by the codec and the write paths.
const (
	fieldUsername = "username"
	fieldPassword = "password"
	fieldRoles    = "roles"
	fieldFullName = "full_name"
	fieldEmail    = "email"
	fieldMetadata = "metadata"
	fieldEnabled  = "enabled"
)

// User is an account record without credential material.
type User struct {
	Username string
	Roles    []string
	FullName string
	Email    string
	Metadata map[string]any
	Enabled  bool
}

// userAndHash pairs an account with its stored password hash. An empty
// hash means no credential literal is stored and the account cannot be
// verified. Only the codec produces these; they are never persisted as-is.
type userAndHash struct {
	user         *User
	passwordHash string
}

// ReservedUserInfo is the stored override for one built-in account:
// password hash plus enabled flag. An account with no override document
// falls back to the compiled-in default hash; that fallback belongs to the
// caller, not this store.
type ReservedUserInfo struct {
	PasswordHash string
	Enabled      bool
}

// PutUserRequest creates or updates a regular account. With an empty
// PasswordHash only the non-credential fields of an existing account are
// updated; a hash makes the request a full upsert.
type PutUserRequest struct {
	Username     string
	Roles        []string
	FullName     string
	Email        string
	Metadata     map[string]any
	Enabled      bool
	PasswordHash string
	Refresh      docstore.RefreshPolicy
}

// Validate implements the request-level field rules.
func (r PutUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Email, validation.Length(3, 256), is.Email),
	)
}

// ChangePasswordRequest replaces the stored hash of a regular or reserved
// account.
type ChangePasswordRequest struct {
	Username     string
	PasswordHash string
	Refresh      docstore.RefreshPolicy
}

// Validate implements the request-level field rules.
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.PasswordHash, validation.Required),
	)
}

// DeleteUserRequest removes a regular account.
type DeleteUserRequest struct {
	Username string
	Refresh  docstore.RefreshPolicy
}

// Validate implements the request-level field rules.
func (r DeleteUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
	)
}
