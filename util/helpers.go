package util

import (
	"encoding/hex"
	"io"
	"math/rand"
	"regexp"
	"sync"
	"time"
)

var validHexRegex = regexp.MustCompile("^([0-9a-fA-F])+$")

// IsHex checks if the given string contains only valid hex symbols
func IsHex(str string) bool { return validHexRegex.MatchString(str) }

// IsHexEncodedStringWithLength checks if the given string contains only valid hex symbols and have the desired length
func IsHexEncodedStringWithLength(str string, length int) bool {
	str = TrimHex(str)
	return hex.DecodedLen(len(str)) == length && IsHex(str)
}

// TrimHex strips a leading 0x or 0X.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

var (
	randMu     sync.Mutex
	randReader = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomBytes returns n non cryptographically secure random bytes.
func RandomBytes(n int) []byte {
	randMu.Lock()
	defer randMu.Unlock()
	bytes := make([]byte, n)
	if _, err := io.ReadFull(randReader, bytes); err != nil {
		panic(err)
	}
	return bytes
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// RandomInt returns a random int in [min, max).
func RandomInt(min, max int) int {
	randMu.Lock()
	defer randMu.Unlock()
	return randReader.Intn(max-min) + min
}
