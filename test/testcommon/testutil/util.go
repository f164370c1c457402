package testutil

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/util"
)

// Hex2byte decodes s or fails the test.
func Hex2byte(tb testing.TB, s string) []byte {
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		if tb == nil {
			panic(err)
		}
		tb.Fatal(err)
	}
	return b
}

// Random is a deterministic source of test data.
type Random struct {
	rand *rand.Rand
}

// NewRandom returns a Random seeded with seed. A zero seed is valid.
func NewRandom(seed int64) Random {
	return Random{rand: rand.New(rand.NewSource(seed))}
}

// RandomBytes returns n random bytes.
func (r *Random) RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := r.rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomIntn returns a random int in [0, n).
func (r *Random) RandomIntn(n int) int {
	return r.rand.Intn(n)
}

// RandomAddress returns a random account address.
func (r *Random) RandomAddress() common.Address {
	return common.BytesToAddress(r.RandomBytes(common.AddressLength))
}
