package api

import (
	"encoding/json"

	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/log"
)

func (a *API) enableAdminHandlers() error {
	if err := a.Endpoint.RegisterMethod(
		"/admin/loglevel",
		"GET",
		apirest.MethodAccessTypeAdmin,
		a.getLogLevelHandler,
	); err != nil {
		return err
	}
	return a.Endpoint.RegisterMethod(
		"/admin/loglevel",
		"POST",
		apirest.MethodAccessTypeAdmin,
		a.setLogLevelHandler,
	)
}

// GET /admin/loglevel
func (*API) getLogLevelHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	return sendJSON(ctx, &LogLevel{Level: log.Level()})
}

// POST /admin/loglevel
// changes the log level of the running node
func (*API) setLogLevelHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	req := &LogLevel{}
	if err := json.Unmarshal(msg.Data, req); err != nil {
		return ErrCantParsePayloadAsJSON.WithErr(err)
	}
	if err := log.SetLevel(req.Level); err != nil {
		return ErrCantParseLogLevel.WithErr(err)
	}
	log.Infow("log level changed", "level", req.Level)
	return sendJSON(ctx, req)
}
