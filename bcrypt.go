package userstore

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptAuthenticator is the default PasswordAuthenticator, hashing with
// bcrypt at the build-dependent cost.
type BcryptAuthenticator struct{}

// HashPassword will generate a password hash
func (BcryptAuthenticator) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (BcryptAuthenticator) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// DefaultReservedPasswordHash returns the placeholder hash seeded into a
// reserved account's record when it is enabled or disabled before any
// password was ever set. The built-in credential check layered above the
// store treats this value as "no explicit password configured".
var DefaultReservedPasswordHash = sync.OnceValue(func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on an out-of-range cost, which DefaultCost is not
		panic(err)
	}
	return string(h)
})
