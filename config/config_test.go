package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/types"
)

func TestParseFundedAccounts(t *testing.T) {
	addr1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addr2 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	accounts, err := ParseFundedAccounts([]string{
		addr1.Hex() + ":10",
		"",
		" 2222222222222222222222222222222222222222:1 ",
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, accounts, qt.DeepEquals, []FundedAccount{
		{Address: addr1, Amount: 10},
		{Address: addr2, Amount: 1},
	})

	for _, bad := range []string{
		addr1.Hex(),
		addr1.Hex() + ":0",
		addr1.Hex() + ":-1",
		"0x1234:5",
	} {
		_, err := ParseFundedAccounts([]string{bad})
		qt.Assert(t, err, qt.IsNotNil, qt.Commentf("%s", bad))
	}
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.DBType = db.TypePebble
	cfg.Sequencer.BlockTimeMs = 1000
	cfg.Sequencer.BlockSize = 10
	qt.Assert(t, cfg.Validate(), qt.IsNil)
	qt.Assert(t, cfg.ChainID, qt.Equals, types.DefaultChainID)

	cfg.DBType = "badger"
	qt.Assert(t, cfg.Validate(), qt.ErrorMatches, `dbType "badger" is invalid.*`)
	cfg.DBType = db.TypeMemory
	cfg.Sequencer.BlockSize = 0
	qt.Assert(t, cfg.Validate(), qt.IsNotNil)
}
