package commands

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.vocdoni.io/tokenvote/apiclient"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
	"go.vocdoni.io/tokenvote/log"
)

var mintCmd = &cobra.Command{
	Use:   "mint <address> <amount>",
	Short: "Mint voting credentials for an address (minters only).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, amount, err := addressAndAmount(args)
		if err != nil {
			return err
		}
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.Mint(ctx, to, amount)
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return nil
	},
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize <spender> <amount>",
	Short: "Allow spender to consume amount credentials of the account.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spender, amount, err := addressAndAmount(args)
		if err != nil {
			return err
		}
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.Authorize(ctx, spender, amount)
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return nil
	},
}

var grantMinterCmd = &cobra.Command{
	Use:   "grant-minter <address>",
	Short: "Give the minter role to an address (ledger admin only).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.GrantMinter(ctx, common.HexToAddress(args[0]))
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the credentials of an address, or of the account if omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, addr, err := clientAndAddress(args)
		if err != nil {
			return err
		}
		acc, err := c.Credentials(addr)
		if err != nil {
			return err
		}
		infoPrint.Fprint(Stdout, "address: ")
		valuePrint.Fprintln(Stdout, acc.Address.Hex())
		infoPrint.Fprint(Stdout, "balance: ")
		valuePrint.Fprintln(Stdout, acc.Balance)
		infoPrint.Fprint(Stdout, "nonce:   ")
		valuePrint.Fprintln(Stdout, acc.Nonce)
		if acc.Minter {
			okPrint.Fprintln(Stdout, "minter")
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [address]",
	Short: "Show the mints and authorizations of an address (requires the node indexer).",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, addr, err := clientAndAddress(args)
		if err != nil {
			return err
		}
		h, err := c.CredentialHistory(addr)
		if err != nil {
			return err
		}
		if len(h.Events) == 0 {
			fmt.Fprintln(Stdout, au.Yellow("no credential events"))
			return nil
		}
		infoPrint.Fprintf(Stdout, "%-8s %-10s %-42s %s\n", "HEIGHT", "KIND", "COUNTERPARTY", "AMOUNT")
		for _, e := range h.Events {
			valuePrint.Fprintf(Stdout, "%-8d %-10s %-42s %d\n", e.Height, e.Kind, e.Counterparty.Hex(), e.Amount)
		}
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new account key pair.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ethereum.NewSignKeys()
		if err := key.Generate(); err != nil {
			return err
		}
		_, priv := key.HexString()
		fmt.Fprintln(Stdout, au.Blue("address:"), key.Address().Hex())
		fmt.Fprintln(Stdout, au.Red("private key:"), priv)
		return nil
	},
}

var logLevelCmd = &cobra.Command{
	Use:   "loglevel <level>",
	Short: "Change the log level of the node (requires the admin token).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		if err := c.SetLogLevel(args[0]); err != nil {
			return err
		}
		log.Debugf("node log level set to %s", args[0])
		fmt.Fprintln(Stdout, au.Green("✓"), "log level set to", args[0])
		return nil
	},
}

func addressAndAmount(args []string) (common.Address, uint64, error) {
	if !common.IsHexAddress(args[0]) {
		return common.Address{}, 0, fmt.Errorf("invalid address %q", args[0])
	}
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || amount == 0 {
		return common.Address{}, 0, fmt.Errorf("invalid amount %q", args[1])
	}
	return common.HexToAddress(args[0]), amount, nil
}

// clientAndAddress returns a client and the address given in args, or the
// address of the configured account if args is empty.
func clientAndAddress(args []string) (*apiclient.HTTPclient, common.Address, error) {
	if len(args) == 1 {
		if !common.IsHexAddress(args[0]) {
			return nil, common.Address{}, fmt.Errorf("invalid address %q", args[0])
		}
		c, err := newClient(false)
		return c, common.HexToAddress(args[0]), err
	}
	c, err := newClient(true)
	if err != nil {
		return nil, common.Address{}, err
	}
	return c, c.Account().Address(), nil
}
