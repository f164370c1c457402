package testcommon

import (
	"context"
	"net/url"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
	"go.vocdoni.io/tokenvote/db/metadb"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/indexer"
	"go.vocdoni.io/tokenvote/sequencer"
)

// TestChainID is the chain ID of the APIserver.
const TestChainID = "tokenvote-test"

// APIserver runs a complete election node for testing: engine, sequencer
// producing blocks every BlockTime, indexer and API router. Account is the
// election operator.
type APIserver struct {
	Account    *ethereum.SignKeys
	AdminToken uuid.UUID
	ListenAddr *url.URL
	Engine     *election.Engine
	Sequencer  *sequencer.Sequencer
	Indexer    *indexer.Indexer
	BlockTime  time.Duration
}

// Start starts the node with the given API handler groups enabled. Every
// piece is stopped on test cleanup.
func (d *APIserver) Start(t testing.TB, apis ...string) {
	d.Account = ethereum.NewSignKeys()
	qt.Assert(t, d.Account.Generate(), qt.IsNil)
	if d.BlockTime == 0 {
		d.BlockTime = 100 * time.Millisecond
	}

	var err error
	d.Engine, err = election.New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, d.Engine.Init(d.Account.Address()), qt.IsNil)

	d.Sequencer, err = sequencer.New(d.Engine, metadb.NewTest(t), TestChainID)
	qt.Assert(t, err, qt.IsNil)
	d.Sequencer.SetBlockTimeTarget(d.BlockTime)

	d.Indexer, err = indexer.New(t.TempDir(), d.Engine)
	qt.Assert(t, err, qt.IsNil)

	router := &httprouter.HTTProuter{}
	qt.Assert(t, router.Init("127.0.0.1", 0), qt.IsNil)
	d.ListenAddr, err = url.Parse("http://" + router.Address().String() + "/v1")
	qt.Assert(t, err, qt.IsNil)
	t.Logf("address: %s", d.ListenAddr)

	a, err := api.NewAPI(router, "/v1")
	qt.Assert(t, err, qt.IsNil)
	a.Attach(d.Engine, d.Sequencer, d.Indexer)
	qt.Assert(t, a.EnableHandlers(apis...), qt.IsNil)
	d.AdminToken = uuid.New()
	a.Endpoint.SetAdminToken(d.AdminToken.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Sequencer.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		router.Close()
		d.Indexer.Close()
	})
}
