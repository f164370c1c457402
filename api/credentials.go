package api

import (
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/indexer"
)

// maxHistory is the number of credential events returned by the history endpoint.
const maxHistory = 100

func (a *API) enableCredentialsHandlers() error {
	if err := a.Endpoint.RegisterMethod(
		"/credentials/{address}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.credentialsHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/credentials/{owner}/allowance/{spender}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.allowanceHandler,
	); err != nil {
		return err
	}
	return a.Endpoint.RegisterMethod(
		"/credentials/{address}/history",
		"GET",
		apirest.MethodAccessTypePublic,
		a.credentialHistoryHandler,
	)
}

// GET /credentials/{address}
// returns the credential balance, the transaction nonce and the minter role
func (a *API) credentialsHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	addr, err := parseAddress(ctx.URLParam("address"))
	if err != nil {
		return err
	}
	creds := &Credentials{Address: addr}
	if creds.Balance, err = a.engine.BalanceOf(addr); err != nil {
		return engineError(err)
	}
	if creds.Minter, err = a.engine.IsMinter(addr); err != nil {
		return engineError(err)
	}
	if creds.Nonce, err = a.seq.Nonce(addr); err != nil {
		return engineError(err)
	}
	return sendJSON(ctx, creds)
}

// GET /credentials/{owner}/allowance/{spender}
func (a *API) allowanceHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	owner, err := parseAddress(ctx.URLParam("owner"))
	if err != nil {
		return err
	}
	spender, err := parseAddress(ctx.URLParam("spender"))
	if err != nil {
		return err
	}
	amount, err := a.engine.Allowance(owner, spender)
	if err != nil {
		return engineError(err)
	}
	return sendJSON(ctx, &Allowance{Owner: owner, Spender: spender, Amount: amount})
}

// GET /credentials/{address}/history
// returns the latest mints and authorizations involving the address, newest first
func (a *API) credentialHistoryHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	if a.indexer == nil {
		return ErrIndexerNotAvailable
	}
	addr, err := parseAddress(ctx.URLParam("address"))
	if err != nil {
		return err
	}
	events, err := a.indexer.CredentialHistory(addr, maxHistory)
	if err != nil {
		return ErrIndexerQueryFailed.WithErr(err)
	}
	if events == nil {
		events = []*indexer.CredentialEvent{}
	}
	return sendJSON(ctx, &CredentialHistory{Events: events})
}
