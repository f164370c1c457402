package commands

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
	"go.vocdoni.io/tokenvote/test/testcommon"
)

func run(t *testing.T, args ...string) (string, error) {
	out := &bytes.Buffer{}
	Stdout = out
	RootCmd.SetArgs(append(args, "--color=false"))
	RootCmd.SetOut(out)
	RootCmd.SetErr(out)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestOperatorFlow(t *testing.T) {
	server := testcommon.APIserver{}
	server.Start(t, api.ChainHandler, api.ElectionHandler, api.CredentialsHandler)
	host := "--host=" + server.ListenAddr.String()
	_, operatorKey := server.Account.HexString()

	voter := ethereum.NewSignKeys()
	qt.Assert(t, voter.Generate(), qt.IsNil)
	_, voterKey := voter.HexString()

	_, err := run(t, "add-candidate", "Alice", "Smith", host, "--key="+operatorKey)
	qt.Assert(t, err, qt.IsNil)
	_, err = run(t, "add-candidate", "Bob", host, "--key="+operatorKey)
	qt.Assert(t, err, qt.IsNil)
	_, err = run(t, "mint", voter.Address().Hex(), "1", host, "--key="+operatorKey)
	qt.Assert(t, err, qt.IsNil)

	out, err := run(t, "balance", voter.Address().Hex(), host)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Contains, "balance: 1")

	_, err = run(t, "vote", "2", host, "--key="+voterKey)
	qt.Assert(t, err, qt.IsNil)

	out, err = run(t, "status", host)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Contains, "OPEN")
	qt.Assert(t, out, qt.Contains, "Alice Smith")
	qt.Assert(t, out, qt.Matches, `(?s).*2\s+Bob\s+1\n.*`)

	// the winner is only disclosed once the election is closed
	_, err = run(t, "winner", host)
	qt.Assert(t, err, qt.IsNotNil)

	out, err = run(t, "end", "--yes", host, "--key="+operatorKey)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Contains, "winner: Bob")

	out, err = run(t, "history", voter.Address().Hex(), host)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Contains, "mint")
	qt.Assert(t, out, qt.Contains, "authorize")
}

func TestArgumentErrors(t *testing.T) {
	server := testcommon.APIserver{}
	server.Start(t, api.ChainHandler, api.ElectionHandler, api.CredentialsHandler)
	host := "--host=" + server.ListenAddr.String()

	_, err := run(t, "mint", "0x1234", "1", host)
	qt.Assert(t, err, qt.ErrorMatches, "invalid address.*")
	_, err = run(t, "authorize", "0x0000000000000000000000000000000000000001", "0", host)
	qt.Assert(t, err, qt.ErrorMatches, "invalid amount.*")
	_, err = run(t, "add-candidate", "Carol", host, "--key=")
	qt.Assert(t, err, qt.Equals, errNoKey)
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Matches, `(?s)address: 0x[0-9a-fA-F]{40}\nprivate key: [0-9a-f]{64}\n`)
}
