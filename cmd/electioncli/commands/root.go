// Package commands implements electioncli, the command line tool of the
// election operator and voters.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.vocdoni.io/tokenvote/apiclient"
	"go.vocdoni.io/tokenvote/log"
)

const (
	hostKey       = "host"
	keyKey        = "key"
	adminTokenKey = "adminToken"
)

var (
	// Stdout and Stdin can be replaced when running the commands from tests.
	Stdout io.Writer     = os.Stdout
	Stdin  io.ReadCloser = os.Stdin

	v   = viper.New()
	au  aurora.Aurora
	opt options

	errNoKey = errors.New("a private key is required, use --key or $ELECTIONCLI_KEY")
)

type options struct {
	colorize bool
	debug    bool
	yes      bool
	timeout  time.Duration
}

// RootCmd is the electioncli root command.
var RootCmd = &cobra.Command{
	Use:   "electioncli",
	Short: "electioncli manages and takes part in a token-gated election.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		au = aurora.NewAurora(opt.colorize)
		color.NoColor = !opt.colorize
		if opt.debug {
			log.Init("debug", "stderr")
		} else {
			log.Init("error", "stderr")
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	flags := RootCmd.PersistentFlags()
	flags.String(hostKey, "http://127.0.0.1:9090/v1", "API endpoint of the election node")
	flags.String(keyKey, "", "hex private key used to sign transactions")
	flags.String(adminTokenKey, "", "bearer token for the admin methods")
	flags.BoolVarP(&opt.colorize, "color", "c", true, "colorize output")
	flags.BoolVarP(&opt.debug, "debug", "d", false, "print debug information")
	flags.BoolVarP(&opt.yes, "yes", "y", false, "do not ask for confirmation")
	flags.DurationVar(&opt.timeout, "timeout", time.Minute, "time to wait for a transaction to be delivered")

	v.SetEnvPrefix("ELECTIONCLI")
	v.AutomaticEnv()
	for _, key := range []string{hostKey, keyKey, adminTokenKey} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	RootCmd.AddCommand(addCandidateCmd, mintCmd, authorizeCmd, grantMinterCmd, voteCmd,
		endCmd, statusCmd, winnerCmd, balanceCmd, historyCmd, keygenCmd, logLevelCmd)
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient connects to the configured host. If withKey is set the client
// signs with the configured private key.
func newClient(withKey bool) (*apiclient.HTTPclient, error) {
	host, err := url.Parse(v.GetString(hostKey))
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	var token *uuid.UUID
	if t := v.GetString(adminTokenKey); t != "" {
		parsed, err := uuid.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("invalid admin token: %w", err)
		}
		token = &parsed
	}
	c, err := apiclient.NewHTTPclient(host, token)
	if err != nil {
		return nil, err
	}
	if withKey {
		key := strings.TrimSpace(v.GetString(keyKey))
		if key == "" {
			return nil, errNoKey
		}
		if err := c.SetAccount(key); err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	}
	return c, nil
}

func txContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opt.timeout)
}

func printReceipt(height uint64, index uint32) {
	fmt.Fprintf(Stdout, "%s included at block %d (index %d)\n", au.Green("✓"), height, index)
}
