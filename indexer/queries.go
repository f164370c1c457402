package indexer

import (
	"database/sql"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// CandidateList returns the indexed candidates ordered by id.
func (idx *Indexer) CandidateList() ([]*CandidateRecord, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	rows, err := idx.sqlDB.QueryContext(ctx,
		`SELECT id, name, created_height FROM candidates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*CandidateRecord
	for rows.Next() {
		c := &CandidateRecord{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedHeight); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// CandidateVotes returns up to limit votes for a candidate, in the order
// they were included, skipping the first from ones.
func (idx *Indexer) CandidateVotes(candidateID uint64, from, limit int) ([]*VoteRecord, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	rows, err := idx.sqlDB.QueryContext(ctx,
		`SELECT voter, candidate_id, height, position FROM votes
		WHERE candidate_id = ?
		ORDER BY height, position
		LIMIT ? OFFSET ?`, candidateID, limit, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*VoteRecord
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// VoteByVoter returns the vote cast by voter.
func (idx *Indexer) VoteByVoter(voter common.Address) (*VoteRecord, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	row := idx.sqlDB.QueryRowContext(ctx,
		`SELECT voter, candidate_id, height, position FROM votes WHERE voter = ?`, voter.Bytes())
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// CountVotes returns the number of indexed votes.
func (idx *Indexer) CountVotes() (uint64, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	var count uint64
	err := idx.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes`).Scan(&count)
	return count, err
}

// EndHeight returns the height at which the election was ended.
func (idx *Indexer) EndHeight() (uint64, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	var height uint64
	err := idx.sqlDB.QueryRowContext(ctx, `SELECT height FROM election_end WHERE id = 1`).Scan(&height)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return height, err
}

// CredentialHistory returns the latest limit credential events involving
// addr, newest first.
func (idx *Indexer) CredentialHistory(addr common.Address, limit int) ([]*CredentialEvent, error) {
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	rows, err := idx.sqlDB.QueryContext(ctx,
		`SELECT kind, owner, counterparty, amount, height FROM credential_events
		WHERE owner = ? OR counterparty = ?
		ORDER BY id DESC
		LIMIT ?`, addr.Bytes(), addr.Bytes(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*CredentialEvent
	for rows.Next() {
		ev := &CredentialEvent{}
		var owner, counterparty []byte
		if err := rows.Scan(&ev.Kind, &owner, &counterparty, &ev.Amount, &ev.Height); err != nil {
			return nil, err
		}
		ev.Owner = common.BytesToAddress(owner)
		ev.Counterparty = common.BytesToAddress(counterparty)
		list = append(list, ev)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVote(s scanner) (*VoteRecord, error) {
	v := &VoteRecord{}
	var voter []byte
	if err := s.Scan(&voter, &v.CandidateID, &v.Height, &v.Position); err != nil {
		return nil, err
	}
	v.Voter = common.BytesToAddress(voter)
	return v, nil
}
