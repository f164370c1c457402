package api

import (
	"errors"

	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/indexer"
)

func (a *API) enableElectionHandlers() error {
	for _, m := range []struct {
		pattern string
		handler apirest.APIhandler
	}{
		{"/election", a.electionInfoHandler},
		{"/election/candidates", a.candidateListHandler},
		{"/election/candidates/{id}", a.candidateHandler},
		{"/election/candidates/{id}/votes/page/{page}", a.candidateVotesHandler},
		{"/election/winner", a.winnerHandler},
		{"/election/voters/{address}", a.voterHandler},
	} {
		if err := a.Endpoint.RegisterMethod(m.pattern, "GET",
			apirest.MethodAccessTypePublic, m.handler); err != nil {
			return err
		}
	}
	return nil
}

// GET /election
// returns the election status, operator, number of candidates and votes
func (a *API) electionInfoHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	info, err := a.engine.Info()
	if err != nil {
		return engineError(err)
	}
	resp := &ElectionInfo{
		Status:         info.Status.String(),
		Operator:       info.Operator,
		CandidateCount: info.CandidateCount,
		TotalVotes:     info.TotalVotes,
	}
	if a.indexer != nil {
		if height, err := a.indexer.EndHeight(); err == nil {
			resp.EndHeight = &height
		}
	}
	return sendJSON(ctx, resp)
}

// GET /election/candidates
// returns every candidate with its tally, ordered by id
func (a *API) candidateListHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	candidates, err := a.engine.Candidates()
	if err != nil {
		return engineError(err)
	}
	list := &CandidateList{Candidates: []*Candidate{}}
	for _, c := range candidates {
		list.Candidates = append(list.Candidates, candidateFromEngine(c))
	}
	return sendJSON(ctx, list)
}

// GET /election/candidates/{id}
func (a *API) candidateHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := parseCandidateID(ctx.URLParam("id"))
	if err != nil {
		return err
	}
	c, err := a.engine.Candidate(id)
	if err != nil {
		return engineError(err)
	}
	return sendJSON(ctx, candidateFromEngine(c))
}

// GET /election/candidates/{id}/votes/page/{page}
// returns a page of the votes received by a candidate, in inclusion order
func (a *API) candidateVotesHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	if a.indexer == nil {
		return ErrIndexerNotAvailable
	}
	id, err := parseCandidateID(ctx.URLParam("id"))
	if err != nil {
		return err
	}
	page, err := parsePage(ctx.URLParam("page"))
	if err != nil {
		return err
	}
	if _, err := a.engine.Candidate(id); err != nil {
		return engineError(err)
	}
	votes, err := a.indexer.CandidateVotes(id, page*MaxPageSize, MaxPageSize)
	if err != nil {
		return ErrIndexerQueryFailed.WithErr(err)
	}
	if votes == nil {
		votes = []*indexer.VoteRecord{}
	}
	return sendJSON(ctx, &VoteList{Votes: votes})
}

// GET /election/winner
// returns the winning candidate, only once the election has ended
func (a *API) winnerHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	c, err := a.engine.Winner()
	if err != nil {
		return engineError(err)
	}
	return sendJSON(ctx, candidateFromEngine(c))
}

// GET /election/voters/{address}
// returns whether the address has voted and, if so, for whom
func (a *API) voterHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	addr, err := parseAddress(ctx.URLParam("address"))
	if err != nil {
		return err
	}
	rec, err := a.engine.Voter(addr)
	if err != nil {
		return engineError(err)
	}
	voter := &Voter{Address: addr, HasVoted: rec.HasVoted}
	if !rec.HasVoted {
		return sendJSON(ctx, voter)
	}
	voter.CandidateID = &rec.CandidateID
	if a.indexer != nil {
		vote, err := a.indexer.VoteByVoter(addr)
		switch {
		case err == nil:
			voter.Vote = vote
		case !errors.Is(err, indexer.ErrNotFound):
			return ErrIndexerQueryFailed.WithErr(err)
		}
	}
	return sendJSON(ctx, voter)
}
