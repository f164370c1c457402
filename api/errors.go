//nolint:lll
package api

import (
	"errors"

	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/sequencer"
)

// Error codes in the 4000-4999 range are the user's fault, and error codes
// 5000-5999 are the server's fault, mimicking HTTP.
var (
	ErrAddressMalformed         = apirest.APIerror{Code: 4000, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("address malformed")}
	ErrCantParseCandidateID     = apirest.APIerror{Code: 4001, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse candidate id")}
	ErrCantParsePageNumber      = apirest.APIerror{Code: 4002, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse page number")}
	ErrCantParsePayloadAsJSON   = apirest.APIerror{Code: 4003, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse payload as JSON")}
	ErrCantParseHash            = apirest.APIerror{Code: 4004, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse transaction hash")}
	ErrCantParseLogLevel        = apirest.APIerror{Code: 4005, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("cannot parse log level")}
	ErrCandidateNotFound        = apirest.APIerror{Code: 4006, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("candidate not found")}
	ErrTransactionNotFound      = apirest.APIerror{Code: 4007, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("transaction not found")}
	ErrBlockNotFound            = apirest.APIerror{Code: 4008, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("block not found")}
	ErrVoteNotFound             = apirest.APIerror{Code: 4009, HTTPstatus: apirest.HTTPstatusNotFound, Err: errors.New("vote not found")}
	ErrTxRejected               = apirest.APIerror{Code: 4010, HTTPstatus: apirest.HTTPstatusBadRequest, Err: errors.New("transaction rejected")}
	ErrElectionNotInitialized   = apirest.APIerror{Code: 4011, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("election not initialized")}
	ErrElectionNotEnded         = apirest.APIerror{Code: 4012, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("election has not ended")}
	ErrNoCandidates             = apirest.APIerror{Code: 4013, HTTPstatus: apirest.HTTPstatusConflict, Err: errors.New("election has no candidates")}
	ErrMempoolFull              = apirest.APIerror{Code: 5000, HTTPstatus: apirest.HTTPstatusServiceUnavailable, Err: errors.New("mempool is full")}
	ErrIndexerNotAvailable      = apirest.APIerror{Code: 5001, HTTPstatus: apirest.HTTPstatusServiceUnavailable, Err: errors.New("indexer not available")}
	ErrIndexerQueryFailed       = apirest.APIerror{Code: 5002, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("indexer query failed")}
	ErrEngineQueryFailed        = apirest.APIerror{Code: 5003, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("election state query failed")}
	ErrMarshalingServerJSONFail = apirest.APIerror{Code: 5004, HTTPstatus: apirest.HTTPstatusInternalErr, Err: errors.New("marshaling (server-side) JSON failed")}
)

// engineError maps an error returned by the election engine to an APIerror.
func engineError(err error) apirest.APIerror {
	switch {
	case errors.Is(err, election.ErrNotFound):
		return ErrCandidateNotFound
	case errors.Is(err, election.ErrNotInitialized):
		return ErrElectionNotInitialized
	case errors.Is(err, election.ErrElectionNotEnded):
		return ErrElectionNotEnded
	case errors.Is(err, election.ErrNoCandidates):
		return ErrNoCandidates
	default:
		return ErrEngineQueryFailed.WithErr(err)
	}
}

// sendTxError maps a transaction admission error to an APIerror.
func sendTxError(err error) apirest.APIerror {
	if errors.Is(err, sequencer.ErrMempoolFull) {
		return ErrMempoolFull
	}
	return ErrTxRejected.WithErr(err)
}
