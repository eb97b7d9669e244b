package checkout

import (
	"fmt"
	"sync"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	suffixOnce sync.Once
	suffixGen  func() string
	suffixErr  error
)

// NewOrderNumber formats ORD-<last 6 digits of the unix millisecond clock>-<5 random
// uppercase alphanumerics>. Uniqueness is enforced by the database.
func NewOrderNumber(now time.Time) (string, error) {
	suffixOnce.Do(func() {
		suffixGen, suffixErr = nanoid.CustomASCII(orderNumberAlphabet, 5)
	})
	if suffixErr != nil {
		return "", fmt.Errorf("nanoid.CustomASCII: %w", suffixErr)
	}
	return fmt.Sprintf("ORD-%06d-%s", now.UnixMilli()%1_000_000, suffixGen()), nil
}
