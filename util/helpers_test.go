package util

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTrimHex(t *testing.T) {
	qt.Assert(t, TrimHex("0xabcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("0Xabcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("abcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("0"), qt.Equals, "0")
}

func TestIsHexEncodedStringWithLength(t *testing.T) {
	qt.Assert(t, IsHexEncodedStringWithLength("0x"+RandomHex(20), 20), qt.IsTrue)
	qt.Assert(t, IsHexEncodedStringWithLength(RandomHex(19), 20), qt.IsFalse)
	qt.Assert(t, IsHexEncodedStringWithLength("zz", 1), qt.IsFalse)
}

func TestRandomInt(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := RandomInt(3, 7)
		qt.Assert(t, n >= 3 && n < 7, qt.IsTrue)
	}
}
