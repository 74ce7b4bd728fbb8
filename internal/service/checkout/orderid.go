package checkout

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	orderIDMin  = 100_000_000_000_000 // 1e14
	orderIDSpan = 900_000_000_000_000 // 1e15 - 1e14
)

// NewOrderID returns a random 15-digit decimal id in [1e14, 1e15). Ids are
// not checked for collisions.
func NewOrderID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(orderIDSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+orderIDMin, 10), nil
}
