package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"

	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/sequencer"
	"go.vocdoni.io/tokenvote/types"
	"go.vocdoni.io/tokenvote/util"
)

func (a *API) enableChainHandlers() error {
	if err := a.Endpoint.RegisterMethod(
		"/chain/info",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainInfoHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/chain/transactions",
		"POST",
		apirest.MethodAccessTypePublic,
		a.chainSendTxHandler,
	); err != nil {
		return err
	}
	if err := a.Endpoint.RegisterMethod(
		"/chain/transactions/{hash}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainTxReceiptHandler,
	); err != nil {
		return err
	}
	return a.Endpoint.RegisterMethod(
		"/chain/blocks/{height}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.chainBlockHandler,
	)
}

// GET /chain/info
// returns the chain id, height, mempool size, host health and election status
func (a *API) chainInfoHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	info := &ChainInfo{
		ChainID:     a.seq.ChainID(),
		Height:      a.seq.Height(),
		MempoolSize: a.seq.MempoolSize(),
		Health:      -1,
	}
	status, err := a.engine.Status()
	if err != nil {
		return engineError(err)
	}
	info.ElectionStatus = status.String()
	if health, err := getHealth(); err == nil {
		info.Health = health
	} else {
		log.Debugf("cannot get health status: %v", err)
	}
	return sendJSON(ctx, info)
}

// POST /chain/transactions
// submits a signed transaction
func (a *API) chainSendTxHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	req := &Transaction{}
	if err := json.Unmarshal(msg.Data, req); err != nil {
		return ErrCantParsePayloadAsJSON.WithErr(err)
	}
	res, err := a.seq.SendTx(req.Payload)
	if err != nil {
		return sendTxError(err)
	}
	return sendJSON(ctx, &Transaction{Hash: res.Hash, Code: &res.Code})
}

// GET /chain/transactions/{hash}
// returns the receipt of a delivered transaction
func (a *API) chainTxReceiptHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	hash, err := hex.DecodeString(util.TrimHex(ctx.URLParam("hash")))
	if err != nil || len(hash) != types.HashLength {
		return ErrCantParseHash.With(ctx.URLParam("hash"))
	}
	r, err := a.seq.Receipt(hash)
	if errors.Is(err, sequencer.ErrReceiptNotFound) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return ErrEngineQueryFailed.WithErr(err)
	}
	return sendJSON(ctx, &TransactionReceipt{
		Hash:   hash,
		Height: r.Height,
		Index:  r.Index,
		OK:     r.OK,
		Error:  r.Error,
	})
}

// GET /chain/blocks/{height}
// returns the hashes of the transactions included at height
func (a *API) chainBlockHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	height, err := strconv.ParseUint(ctx.URLParam("height"), 10, 64)
	if err != nil {
		return ErrBlockNotFound.With(ctx.URLParam("height"))
	}
	b, err := a.seq.Block(height)
	if errors.Is(err, sequencer.ErrBlockNotFound) {
		return ErrBlockNotFound
	}
	if err != nil {
		return ErrEngineQueryFailed.WithErr(err)
	}
	block := &Block{Height: b.Height, Timestamp: b.Timestamp, Txs: []types.HexBytes{}}
	for _, tx := range b.Txs {
		block.Txs = append(block.Txs, sequencer.TxHash(tx))
	}
	return sendJSON(ctx, block)
}
