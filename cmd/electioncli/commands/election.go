package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	ui "github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/apiclient"
	"go.vocdoni.io/tokenvote/types"
)

var (
	infoPrint  = color.New(color.FgCyan, color.Bold)
	valuePrint = color.New(color.FgHiWhite)
	okPrint    = color.New(color.FgGreen, color.Bold)
	warnPrint  = color.New(color.FgYellow, color.Bold)
)

var addCandidateCmd = &cobra.Command{
	Use:   "add-candidate <name>",
	Short: "Register a new candidate (operator only).",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.AddCandidate(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote [candidate-id]",
	Short: "Vote for a candidate, selected interactively if no id is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		var id uint64
		if len(args) == 1 {
			if id, err = strconv.ParseUint(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid candidate id %q", args[0])
			}
		} else if id, err = selectCandidate(c); err != nil {
			return err
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.Vote(ctx, id)
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return nil
	},
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "Close the election (operator only). This cannot be undone.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		if !opt.yes {
			p := ui.Prompt{
				Label:     "End the election, no more candidates nor votes will be accepted",
				IsConfirm: true,
				Stdin:     Stdin,
			}
			if _, err := p.Run(); err != nil {
				fmt.Fprintln(Stdout, au.Yellow("aborted"))
				return nil
			}
		}
		ctx, cancel := txContext()
		defer cancel()
		receipt, err := c.EndElection(ctx)
		if err != nil {
			return err
		}
		printReceipt(receipt.Height, receipt.Index)
		return printWinner(c)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the election status and the votes of every candidate.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		info, err := c.Election()
		if err != nil {
			return err
		}
		candidates, err := c.Candidates()
		if err != nil {
			return err
		}
		infoPrint.Fprint(Stdout, "status:     ")
		if info.Status == types.StatusEnded.String() {
			warnPrint.Fprintln(Stdout, info.Status)
		} else {
			okPrint.Fprintln(Stdout, info.Status)
		}
		infoPrint.Fprint(Stdout, "operator:   ")
		valuePrint.Fprintln(Stdout, info.Operator.Hex())
		infoPrint.Fprint(Stdout, "votes:      ")
		valuePrint.Fprintln(Stdout, info.TotalVotes)
		if info.EndHeight != nil {
			infoPrint.Fprint(Stdout, "ended at:   ")
			valuePrint.Fprintln(Stdout, *info.EndHeight)
		}
		fmt.Fprintln(Stdout)
		printCandidates(candidates)
		return nil
	},
}

var winnerCmd = &cobra.Command{
	Use:   "winner",
	Short: "Show the winner of a closed election.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		return printWinner(c)
	},
}

func printCandidates(candidates []*api.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(Stdout, au.Yellow("no candidates registered"))
		return
	}
	infoPrint.Fprintf(Stdout, "%-6s %-32s %s\n", "ID", "NAME", "VOTES")
	for _, cand := range candidates {
		valuePrint.Fprintf(Stdout, "%-6d %-32s %d\n", cand.ID, cand.Name, cand.VoteCount)
	}
}

func printWinner(c *apiclient.HTTPclient) error {
	w, err := c.Winner()
	if err != nil {
		return err
	}
	fmt.Fprintf(Stdout, "%s %s %s\n", au.Green("winner:"), au.Bold(w.Name),
		au.Gray(12, fmt.Sprintf("(id %d, %d votes)", w.ID, w.VoteCount)))
	return nil
}

func selectCandidate(c *apiclient.HTTPclient) (uint64, error) {
	candidates, err := c.Candidates()
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no candidates registered")
	}
	items := make([]string, len(candidates))
	for i, cand := range candidates {
		items[i] = fmt.Sprintf("%d: %s", cand.ID, cand.Name)
	}
	sel := ui.Select{Label: "Select a candidate", Items: items, Stdin: Stdin}
	i, _, err := sel.Run()
	if err != nil {
		return 0, err
	}
	return candidates[i].ID, nil
}
