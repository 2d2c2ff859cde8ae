package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCommand(w commandWiring) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the conversation session token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the session token, creating one if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Fprintln(w.stdout, rt.sessions.ID())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Discard the session token so the next conversation starts fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.sessions.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(w.stdout, "session reset")
			return nil
		},
	})
	return cmd
}
