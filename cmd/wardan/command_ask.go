package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wardan/internal/agent"
	"wardan/internal/types"
)

const replyGrace = 2 * time.Second

func newAskCommand(w commandWiring) *cobra.Command {
	var (
		confirm bool
		pick    int
	)
	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Send one utterance and print the reply",
		Long: `Send one utterance over the one-shot transport and print the reply.
A confirmation prompt is answered with --yes, a choice prompt with --pick N.
Without them the prompt is printed and left unanswered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			panel := rt.newPanel(nil)
			defer panel.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*rt.cfg.RequestTimeout()+replyGrace)
			defer cancel()

			from := len(panel.Views())
			if _, err := panel.Submit(strings.Join(args, " ")); err != nil {
				return err
			}
			if err := awaitReply(ctx, panel, from); err != nil {
				return err
			}
			if err := printViews(w.stdout, panel.Views()[from:]); err != nil {
				return err
			}

			pending, ok := panel.Pending()
			if !ok {
				return nil
			}
			from = len(panel.Views())
			switch {
			case pending.Kind == types.IntentConfirmation && confirm:
				err = panel.Confirm()
			case pending.Kind == types.IntentDisambiguation && pick > 0:
				err = panel.Select(pick - 1)
			default:
				fmt.Fprintln(w.stderr, pendingHint(pending))
				return nil
			}
			if err != nil {
				return err
			}
			// The acknowledgement is the first message the resolution logs.
			fmt.Fprintln(w.stdout, panel.Views()[from].Summary)
			if err := awaitReply(ctx, panel, from); err != nil {
				return err
			}
			return printViews(w.stdout, panel.Views()[from+1:])
		},
	}
	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm a confirmation prompt")
	cmd.Flags().IntVar(&pick, "pick", 0, "answer a choice prompt with the Nth option (1-based)")
	return cmd
}

// awaitReply waits for the transport outcome of the utterance submitted at
// index from, unless Submit already recorded its failure.
func awaitReply(ctx context.Context, panel *agent.Panel, from int) error {
	if failed(panel.Views()[from:]) {
		return nil
	}
	for {
		ev, err := panel.Next(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return errors.New("timed out waiting for the agent")
			}
			return err
		}
		switch ev.Kind {
		case agent.EventReply, agent.EventRaw, agent.EventError, agent.EventSystem:
			return nil
		}
	}
}

func failed(views []agent.View) bool {
	for _, view := range views {
		if view.Role == agent.RoleError && view.Summary != agent.FallbackNotice {
			return true
		}
	}
	return false
}

// printViews writes the non-user messages as plain text. An error message
// is returned as the command error after the others are printed.
func printViews(out io.Writer, views []agent.View) error {
	var failure error
	for _, view := range views {
		switch view.Role {
		case agent.RoleUser:
			continue
		case agent.RoleError:
			failure = errors.New(view.Summary)
			continue
		}
		if view.Summary != "" {
			fmt.Fprintln(out, view.Summary)
		}
		switch {
		case view.Placeholder != "":
			fmt.Fprintln(out, view.Placeholder)
		case view.Table != nil:
			writer := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(writer, strings.ToUpper(strings.Join(view.Table.Columns, "\t")))
			for _, row := range view.Table.Rows {
				fmt.Fprintln(writer, strings.Join(row, "\t"))
			}
			_ = writer.Flush()
		case len(view.Card) > 0:
			writer := tabwriter.NewWriter(out, 0, 8, 1, ' ', 0)
			for _, line := range view.Card {
				fmt.Fprintf(writer, "%s:\t%s\n", line.Key, line.Value)
			}
			_ = writer.Flush()
		}
		for _, control := range view.Controls {
			if control.Kind == agent.ControlChoice {
				fmt.Fprintf(out, "  %d. %s\n", control.Index+1, control.Label)
			}
		}
	}
	return failure
}

func pendingHint(pending agent.PendingAction) string {
	if pending.Kind == types.IntentDisambiguation {
		return "choice pending: rerun with --pick N to answer it"
	}
	return "confirmation pending: rerun with --yes to confirm"
}
