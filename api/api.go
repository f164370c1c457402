package api

import (
	"errors"
	"fmt"

	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/indexer"
	"go.vocdoni.io/tokenvote/sequencer"
)

// MaxPageSize is the number of results returned by the paginated endpoints.
const MaxPageSize = 10

// Handler groups, enabled with EnableHandlers.
const (
	ChainHandler       = "chain"
	ElectionHandler    = "election"
	CredentialsHandler = "credentials"
	AdminHandler       = "admin"
)

var (
	ErrMissingModulesForHandler = errors.New("missing modules attached for enabling handler")
	ErrHandlerUnknown           = errors.New("handler unknown")
)

// API is the REST API of the election node.
type API struct {
	Endpoint *apirest.API

	engine  *election.Engine
	seq     *sequencer.Sequencer
	indexer *indexer.Indexer
}

// NewAPI creates the API under baseRoute. Attach must be called next.
func NewAPI(router *httprouter.HTTProuter, baseRoute string) (*API, error) {
	endpoint, err := apirest.NewAPI(router, baseRoute)
	if err != nil {
		return nil, err
	}
	return &API{Endpoint: endpoint}, nil
}

// Attach sets the modules used by the handlers. The indexer is optional;
// without it the history endpoints reply with ErrIndexerNotAvailable.
func (a *API) Attach(engine *election.Engine, seq *sequencer.Sequencer, idx *indexer.Indexer) {
	a.engine = engine
	a.seq = seq
	a.indexer = idx
}

// EnableHandlers registers the methods of the given handler groups.
func (a *API) EnableHandlers(handlers ...string) error {
	for _, h := range handlers {
		var err error
		switch h {
		case ChainHandler:
			if a.seq == nil || a.engine == nil {
				return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
			}
			err = a.enableChainHandlers()
		case ElectionHandler:
			if a.engine == nil {
				return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
			}
			err = a.enableElectionHandlers()
		case CredentialsHandler:
			if a.engine == nil || a.seq == nil {
				return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
			}
			err = a.enableCredentialsHandlers()
		case AdminHandler:
			err = a.enableAdminHandlers()
		default:
			return fmt.Errorf("%w: %s", ErrHandlerUnknown, h)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
