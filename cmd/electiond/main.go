package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/config"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/metadb"
	"go.vocdoni.io/tokenvote/db/prefixeddb"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/indexer"
	"go.vocdoni.io/tokenvote/internal"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/metrics"
	"go.vocdoni.io/tokenvote/sequencer"
	"go.vocdoni.io/tokenvote/types"
)

const configFileName = "electiond"

func newConfig() (*config.Config, config.Error) {
	var cfgError config.Error
	cfg := config.NewConfig()
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, config.Error{
			Critical: true,
			Message:  fmt.Sprintf("cannot get user home directory with error: %s", err),
		}
	}

	// CLI flags have preference over the config file
	flag.StringVarP(&cfg.DataDir, "dataDir", "d", filepath.Join(home, ".electiond"),
		"directory where data is stored")
	flag.StringP("dbType", "t", db.TypePebble,
		fmt.Sprintf("key-value db type (%s, %s, %s)", db.TypePebble, db.TypeLevelDB, db.TypeMemory))
	flag.StringP("chainID", "c", types.DefaultChainID, "chain ID transactions must be signed for")
	flag.StringP("signingKey", "k", "",
		"hex private key of the election operator (generated if empty)")
	flag.StringSlice("fundedAccounts", []string{},
		"comma-separated list of address:amount credentials minted on genesis")
	flag.StringP("logLevel", "l", "info", "log level (debug, info, warn, error, fatal)")
	flag.String("logOutput", "stdout", "log output (stdout, stderr or filepath)")
	flag.String("logErrorFile", "", "log errors and warnings to a file")
	flag.Bool("saveConfig", false, "overwrite an existing config file with the provided CLI flags")
	// api
	flag.String("apiRoute", "/v1", "REST API base route")
	flag.String("listenHost", "0.0.0.0", "API endpoint listen address")
	flag.IntP("listenPort", "p", 9090, "API endpoint http port")
	flag.String("adminToken", "", "bearer token for the admin API methods (disabled if empty)")
	flag.String("sslDomain", "", "enable TLS-secure domain with LetsEncrypt (listenPort=443 is required)")
	// sequencer
	flag.Int("blockTime", int(sequencer.DefaultBlockTimeTarget.Milliseconds()),
		"target time between blocks in milliseconds")
	flag.Int("blockSize", sequencer.DefaultTxsPerBlock, "maximum number of transactions per block")
	// indexer
	flag.Bool("indexer", true, "enable the sqlite indexer and the history endpoints")
	// metrics
	flag.Bool("metricsEnabled", false, "enable prometheus metrics at /metrics")
	flag.Int("metricsRefreshInterval", 5, "metrics refresh interval in seconds")
	flag.CommandLine.SortFlags = false
	flag.Parse()

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yml")
	v.SetEnvPrefix("ELECTIOND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// the data dir is needed to find the config file
	if err := v.BindPFlag("dataDir", flag.Lookup("dataDir")); err != nil {
		log.Fatal(err)
	}
	cfg.DataDir = v.GetString("dataDir")
	v.AddConfigPath(cfg.DataDir)

	for key, name := range map[string]string{
		"dbType":                  "dbType",
		"chainID":                 "chainID",
		"signingKey":              "signingKey",
		"fundedAccounts":          "fundedAccounts",
		"logLevel":                "logLevel",
		"logOutput":               "logOutput",
		"logErrorFile":            "logErrorFile",
		"saveConfig":              "saveConfig",
		"api.Route":               "apiRoute",
		"api.ListenHost":          "listenHost",
		"api.ListenPort":          "listenPort",
		"api.AdminToken":          "adminToken",
		"api.Ssl.Domain":          "sslDomain",
		"sequencer.BlockTimeMs":   "blockTime",
		"sequencer.BlockSize":     "blockSize",
		"indexer.Enabled":         "indexer",
		"metrics.Enabled":         "metricsEnabled",
		"metrics.RefreshInterval": "metricsRefreshInterval",
	} {
		if err := v.BindPFlag(key, flag.Lookup(name)); err != nil {
			log.Fatal(err)
		}
	}
	v.Set("api.Ssl.DirCert", filepath.Join(cfg.DataDir, "tls"))

	if _, err := os.Stat(filepath.Join(cfg.DataDir, configFileName+".yml")); os.IsNotExist(err) {
		cfgError = config.Error{
			Message: fmt.Sprintf("creating new config file in %s", cfg.DataDir),
		}
		if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
			cfgError = config.Error{Message: fmt.Sprintf("cannot create data directory: %s", err)}
		}
		if err := v.SafeWriteConfig(); err != nil {
			cfgError = config.Error{Message: fmt.Sprintf("cannot write config file into config dir: %s", err)}
		}
	} else if err := v.ReadInConfig(); err != nil {
		cfgError = config.Error{
			Message: fmt.Sprintf("cannot read loaded config file in %s: %s", cfg.DataDir, err),
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		cfgError = config.Error{Message: fmt.Sprintf("cannot unmarshal loaded config file: %s", err)}
	}

	if cfg.SigningKey == "" {
		fmt.Println("no signing key, generating one...")
		signer := ethereum.NewSignKeys()
		if err := signer.Generate(); err != nil {
			return cfg, config.Error{
				Critical: true,
				Message:  fmt.Sprintf("cannot generate signing key: %s", err),
			}
		}
		_, priv := signer.HexString()
		v.Set("signingKey", priv)
		cfg.SigningKey = priv
		cfg.SaveConfig = true
	}
	if cfg.SaveConfig {
		v.Set("saveConfig", false)
		if err := v.WriteConfig(); err != nil {
			cfgError = config.Error{Message: fmt.Sprintf("cannot overwrite config file into config dir: %s", err)}
		}
	}
	return cfg, cfgError
}

func main() {
	// the logger is not set up until the config is loaded
	fmt.Fprintf(os.Stderr, "electiond version %q\n", internal.Version)

	cfg, cfgErr := newConfig()
	if cfg == nil {
		log.Fatal("cannot read configuration")
	}
	log.Init(cfg.LogLevel, cfg.LogOutput)
	if path := cfg.LogErrorFile; path != "" {
		if err := log.SetFileErrorLog(path); err != nil {
			log.Fatal(err)
		}
	}
	switch {
	case cfgErr.Critical && cfgErr.Message != "":
		log.Fatalf("critical error loading config: %s", cfgErr.Message)
	case cfgErr.Message != "":
		log.Warnf("non-critical error loading config: %s", cfgErr.Message)
	default:
		log.Infof("config file loaded successfully. Reminder: CLI flags have preference")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Infow("starting electiond", "version", internal.Version, "chainID", cfg.ChainID,
		"dataDir", cfg.DataDir, "dbType", cfg.DBType)

	signer := ethereum.NewSignKeys()
	if err := signer.AddHexKey(cfg.SigningKey); err != nil {
		log.Fatalf("cannot load signing key: %v", err)
	}

	// storage: one database for the election state and one for the blocks
	database, err := metadb.New(cfg.DBType, filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()
	engine, err := election.New(prefixeddb.NewPrefixedDatabase(database, []byte("state/")))
	if err != nil {
		log.Fatal(err)
	}
	genesis := false
	switch err := engine.Init(signer.Address()); {
	case err == nil:
		genesis = true
	case errors.Is(err, election.ErrAlreadyInitialized):
		operator, err := engine.Operator()
		if err != nil {
			log.Fatal(err)
		}
		if operator != signer.Address() {
			log.Warnw("signing key is not the election operator",
				"operator", operator.Hex(), "signer", signer.Address().Hex())
		}
	default:
		log.Fatal(err)
	}
	log.Infow("election operator", "address", signer.Address().Hex())

	seq, err := sequencer.New(engine, prefixeddb.NewPrefixedDatabase(database, []byte("blocks/")), cfg.ChainID)
	if err != nil {
		log.Fatal(err)
	}
	seq.SetBlockTimeTarget(time.Duration(cfg.Sequencer.BlockTimeMs) * time.Millisecond)
	seq.SetBlockSize(cfg.Sequencer.BlockSize)

	var idx *indexer.Indexer
	if cfg.Indexer.Enabled {
		if idx, err = indexer.New(cfg.DataDir, engine); err != nil {
			log.Fatal(err)
		}
		defer idx.Close()
	}

	if genesis {
		accounts, err := config.ParseFundedAccounts(cfg.FundedAccounts)
		if err != nil {
			log.Fatal(err)
		}
		for _, acc := range accounts {
			if err := seq.FundAccount(acc.Address, acc.Amount); err != nil {
				log.Fatal(err)
			}
		}
		// the genesis events are indexed at height 0
		if err := engine.Commit(0); err != nil {
			log.Fatal(err)
		}
	}

	router := &httprouter.HTTProuter{
		TLSdomain:  cfg.API.Ssl.Domain,
		TLSdirCert: cfg.API.Ssl.DirCert,
	}
	if cfg.Metrics.Enabled {
		router.PrometheusID = "electiond_http"
	}
	if err := router.Init(cfg.API.ListenHost, cfg.API.ListenPort); err != nil {
		log.Fatal(err)
	}
	defer router.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Metrics.Enabled {
		election.RegisterMetrics()
		sequencer.RegisterMetrics()
		engine.RefreshMetrics()
		metrics.SetBuildInfo("electiond", internal.Version)
		agent := metrics.NewAgent("/metrics",
			time.Duration(cfg.Metrics.RefreshInterval)*time.Second, router)
		agent.AddRefresher(seq.RefreshMetrics)
		agent.AddRefresher(engine.RefreshMetrics)
		agent.Start(ctx)
	}

	restAPI, err := api.NewAPI(router, cfg.API.Route)
	if err != nil {
		log.Fatal(err)
	}
	restAPI.Attach(engine, seq, idx)
	handlers := []string{api.ChainHandler, api.ElectionHandler, api.CredentialsHandler}
	if cfg.API.AdminToken != "" {
		restAPI.Endpoint.SetAdminToken(cfg.API.AdminToken)
		handlers = append(handlers, api.AdminHandler)
	}
	if err := restAPI.EnableHandlers(handlers...); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		seq.Start(ctx)
		close(done)
	}()
	log.Infow("startup complete", "api", fmt.Sprintf("%s%s", router.Address(), cfg.API.Route))

	// close if interrupt received
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.Warnf("received %s, stopping", sig)
	cancel()
	<-done
}
