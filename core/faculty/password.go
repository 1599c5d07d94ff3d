package faculty

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords. Implementations must be deliberately slow and salted.
type Hasher interface {
	Hash(pwd string) ([]byte, error)
	Verify(pwd string, hash []byte) bool
}

type BcryptHasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

var _ Hasher = (*BcryptHasher)(nil)

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), h.Cost)
}

func (h *BcryptHasher) Verify(pwd string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd)) == nil
}

// burn spends the same time as a real verification; used for unknown emails.
func (h *BcryptHasher) burn(pwd string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-password"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(pwd))
}
