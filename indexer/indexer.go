// Package indexer keeps a queryable history of the election in a sqlite
// database: candidates, votes and credential movements, with the block
// height they were included at.
package indexer

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/log"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const queryTimeout = 30 * time.Second

// ErrNotFound is returned when a query has no result.
var ErrNotFound = errors.New("not found in the indexer")

// Indexer is an election.EventListener which stores every event in sqlite
// once the block including it is committed.
type Indexer struct {
	sqlDB *sql.DB

	// lockPool guards the pools, filled by the events of the current block
	lockPool        sync.Mutex
	candidatePool   []*election.Candidate
	votePool        []*election.Vote
	credentialPool  []*CredentialEvent
	endedTotalVotes *uint64
}

// check that Indexer implements election.EventListener
var _ election.EventListener = (*Indexer)(nil)

// New opens, or creates, the indexer database in dataDir and subscribes it to
// the engine events.
func New(dataDir string, engine *election.Engine) (*Indexer, error) {
	sqlDB, err := sql.Open("sqlite3", filepath.Join(dataDir, "indexer.sqlite"))
	if err != nil {
		return nil, err
	}
	// sqlite does not support concurrent writers
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	goose.SetLogger(log.GooseLogger())
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	idx := &Indexer{sqlDB: sqlDB}
	count, err := idx.CountVotes()
	if err != nil {
		return nil, err
	}
	log.Infow("indexer initialized", "dataDir", dataDir, "votes", count)
	if engine != nil {
		engine.AddEventListener(idx)
	}
	return idx, nil
}

// Close closes the sqlite database.
func (idx *Indexer) Close() error {
	return idx.sqlDB.Close()
}

func (idx *Indexer) timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}

// OnCandidateAdded implements election.EventListener.
func (idx *Indexer) OnCandidateAdded(c *election.Candidate) {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	idx.candidatePool = append(idx.candidatePool, c)
}

// OnVote implements election.EventListener.
func (idx *Indexer) OnVote(v *election.Vote) {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	idx.votePool = append(idx.votePool, v)
}

// OnElectionEnded implements election.EventListener.
func (idx *Indexer) OnElectionEnded(totalVotes uint64) {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	idx.endedTotalVotes = &totalVotes
}

// OnCredentialMinted implements election.EventListener.
func (idx *Indexer) OnCredentialMinted(minter, to common.Address, amount uint64) {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	idx.credentialPool = append(idx.credentialPool, &CredentialEvent{
		Kind: KindMint, Owner: to, Counterparty: minter, Amount: amount,
	})
}

// OnCredentialAuthorized implements election.EventListener.
func (idx *Indexer) OnCredentialAuthorized(owner, spender common.Address, amount uint64) {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	idx.credentialPool = append(idx.credentialPool, &CredentialEvent{
		Kind: KindAuthorize, Owner: owner, Counterparty: spender, Amount: amount,
	})
}

// Commit implements election.EventListener. It writes the pooled events of
// the block in a single sqlite transaction.
func (idx *Indexer) Commit(height uint64) error {
	idx.lockPool.Lock()
	defer idx.lockPool.Unlock()
	if len(idx.candidatePool) == 0 && len(idx.votePool) == 0 &&
		len(idx.credentialPool) == 0 && idx.endedTotalVotes == nil {
		return nil
	}
	ctx, cancel := idx.timeoutCtx()
	defer cancel()
	tx, err := idx.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range idx.candidatePool {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (id, name, created_height) VALUES (?, ?, ?)`,
			c.ID, c.Name, height); err != nil {
			return fmt.Errorf("cannot index candidate %d: %w", c.ID, err)
		}
	}
	for i, v := range idx.votePool {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO votes (voter, candidate_id, height, position) VALUES (?, ?, ?, ?)`,
			v.Voter.Bytes(), v.CandidateID, height, i); err != nil {
			return fmt.Errorf("cannot index vote of %s: %w", v.Voter, err)
		}
	}
	for _, ev := range idx.credentialPool {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credential_events (kind, owner, counterparty, amount, height) VALUES (?, ?, ?, ?, ?)`,
			ev.Kind, ev.Owner.Bytes(), ev.Counterparty.Bytes(), ev.Amount, height); err != nil {
			return fmt.Errorf("cannot index credential event: %w", err)
		}
	}
	if idx.endedTotalVotes != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO election_end (id, total_votes, height) VALUES (1, ?, ?)`,
			*idx.endedTotalVotes, height); err != nil {
			return fmt.Errorf("cannot index election end: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debugw("indexed block", "height", height, "candidates", len(idx.candidatePool),
		"votes", len(idx.votePool), "credentialEvents", len(idx.credentialPool))
	idx.candidatePool = nil
	idx.votePool = nil
	idx.credentialPool = nil
	idx.endedTotalVotes = nil
	return nil
}
