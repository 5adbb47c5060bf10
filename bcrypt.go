package auth

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the password hashing policy: bcrypt with a configurable
// work factor. The cost is encoded into every hash it produces, so raising it
// later never invalidates previously stored hashes; verification reads the
// cost back out of the stored value.
type PasswordHasher struct {
	cost int
}

var _ PasswordAuthenticator = (*PasswordHasher)(nil)

// NewPasswordHasher creates a hasher with the given work factor. Costs
// outside bcrypt's bounds fall back to the default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultPasswordCost()
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the configured work factor.
func (p *PasswordHasher) Cost() int {
	return p.cost
}

// HashPassword will generate a password hash
func (p *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. The comparison is delegated to bcrypt, which is
// constant time over the digest; never compare hashes with ==.
func (p *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

var defaultHasher = NewPasswordHasher(0)

// HashPassword hashes with the default work factor.
func HashPassword(password string) (string, error) {
	return defaultHasher.HashPassword(password)
}

// ComparePasswordAndHash verifies against the default hasher.
func ComparePasswordAndHash(password, hash string) error {
	return defaultHasher.ComparePasswordAndHash(password, hash)
}

// dummyPasswordHash is generated once per process. Hashing on every call
// would make the unknown-email login path pay two bcrypt work units (generate
// plus compare) against the wrong-password path's one, which is a measurable
// timing oracle for account existence.
var dummyPasswordHash = sync.OnceValue(func() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		// HashPassword only rejects empty input; a UUID string never is.
		panic(err)
	}
	return h
})

// RandomPasswordHash returns the process's fixed hash of a random value. Used
// as the comparison target when a login names an unknown email, so the miss
// path burns exactly one bcrypt comparison like a real verification does.
func RandomPasswordHash() string {
	return dummyPasswordHash()
}
