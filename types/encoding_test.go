package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytesJSON(t *testing.T) {
	type wrapper struct {
		Hash HexBytes `json:"hash"`
	}
	data, err := json.Marshal(wrapper{Hash: HexBytes{0xde, 0xad, 0xbe, 0xef}})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(data), qt.Equals, `{"hash":"deadbeef"}`)

	var w wrapper
	qt.Assert(t, json.Unmarshal([]byte(`{"hash":"0xcafe"}`), &w), qt.IsNil)
	qt.Assert(t, w.Hash, qt.DeepEquals, HexBytes{0xca, 0xfe})

	// reusing a larger buffer must not leave trailing bytes
	w.Hash = make(HexBytes, 8)
	qt.Assert(t, json.Unmarshal([]byte(`{"hash":"01"}`), &w), qt.IsNil)
	qt.Assert(t, w.Hash, qt.DeepEquals, HexBytes{0x01})

	qt.Assert(t, json.Unmarshal([]byte(`{"hash":"zz"}`), &w), qt.Not(qt.IsNil))
	qt.Assert(t, json.Unmarshal([]byte(`{"hash":12}`), &w), qt.Not(qt.IsNil))
}

func TestHexStringToHexBytes(t *testing.T) {
	qt.Assert(t, HexStringToHexBytes("0x0102"), qt.DeepEquals, HexBytes{1, 2})
	qt.Assert(t, func() { HexStringToHexBytes("xyz") }, qt.PanicMatches, "encoding/hex: .*")
}

func TestElectionStatus(t *testing.T) {
	qt.Assert(t, StatusOpen.String(), qt.Equals, "OPEN")
	qt.Assert(t, StatusEnded.String(), qt.Equals, "ENDED")
}
