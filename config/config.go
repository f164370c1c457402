package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/types"
	"go.vocdoni.io/tokenvote/util"
)

// Config stores the electiond configuration.
type Config struct {
	// DataDir is the path where the databases and the config file are stored
	DataDir string
	// DBType is the key-value database backend (pebble, leveldb or memory)
	DBType string
	// ChainID is the chain transactions must be signed for
	ChainID string
	// SigningKey is the hex private key of the election operator
	SigningKey string
	// FundedAccounts is a list of address:amount credentials minted on genesis
	FundedAccounts []string
	// LogLevel logging level
	LogLevel string
	// LogOutput logging output
	LogOutput string
	// LogErrorFile for logging warning, error and fatal messages
	LogErrorFile string
	// SaveConfig overwrites the config file with the CLI provided flags
	SaveConfig bool
	// API configuration options
	API *APICfg
	// Sequencer configuration options
	Sequencer *SequencerCfg
	// Indexer configuration options
	Indexer *IndexerCfg
	// Metrics configuration options
	Metrics *MetricsCfg
}

// APICfg stores the REST API configuration.
type APICfg struct {
	// Route is the base route of the API
	Route string
	// ListenHost is the address the router listens at
	ListenHost string
	// ListenPort is the port the router listens at
	ListenPort int
	// AdminToken is the bearer token of the admin methods, empty disables them
	AdminToken string
	// Ssl configuration options
	Ssl struct {
		// Domain for the letsencrypt TLS certificate
		Domain string
		// DirCert is the path where the certificates are stored
		DirCert string
	}
}

// SequencerCfg stores the block production configuration.
type SequencerCfg struct {
	// BlockTimeMs is the target time between blocks in milliseconds
	BlockTimeMs int
	// BlockSize is the maximum number of transactions per block
	BlockSize int
}

// IndexerCfg stores the indexer configuration.
type IndexerCfg struct {
	// Enabled if true the history endpoints are available
	Enabled bool
}

// MetricsCfg stores the metrics configuration.
type MetricsCfg struct {
	// Enabled exposes the prometheus endpoint at /metrics
	Enabled bool
	// RefreshInterval in seconds of the sampled gauges
	RefreshInterval int
}

// NewConfig returns a Config with its substructures allocated.
func NewConfig() *Config {
	return &Config{
		API:       new(APICfg),
		Sequencer: new(SequencerCfg),
		Indexer:   new(IndexerCfg),
		Metrics:   new(MetricsCfg),
	}
}

// Validate checks the values which cannot be fixed up at runtime.
func (c *Config) Validate() error {
	switch c.DBType {
	case db.TypePebble, db.TypeLevelDB, db.TypeMemory:
	default:
		return fmt.Errorf("dbType %q is invalid, valid ones: %s, %s, %s",
			c.DBType, db.TypePebble, db.TypeLevelDB, db.TypeMemory)
	}
	if c.ChainID == "" {
		c.ChainID = types.DefaultChainID
	}
	if c.Sequencer.BlockTimeMs <= 0 {
		return fmt.Errorf("invalid block time %dms", c.Sequencer.BlockTimeMs)
	}
	if c.Sequencer.BlockSize <= 0 {
		return fmt.Errorf("invalid block size %d", c.Sequencer.BlockSize)
	}
	if _, err := ParseFundedAccounts(c.FundedAccounts); err != nil {
		return err
	}
	return nil
}

// Error is used by the config parser.
type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

// FundedAccount is an account credited on genesis.
type FundedAccount struct {
	Address common.Address
	Amount  uint64
}

// ParseFundedAccounts parses a list of address:amount entries.
func ParseFundedAccounts(entries []string) ([]FundedAccount, error) {
	var accounts []FundedAccount
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, amount, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("funded account %q: expected address:amount", entry)
		}
		if !util.IsHexEncodedStringWithLength(addr, common.AddressLength) {
			return nil, fmt.Errorf("funded account %q: invalid address", entry)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("funded account %q: invalid amount", entry)
		}
		accounts = append(accounts, FundedAccount{Address: common.HexToAddress(addr), Amount: n})
	}
	return accounts, nil
}
