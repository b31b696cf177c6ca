package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *commandContext) recordSearch(ctx context.Context, query string) error {
	prefs, err := c.ensurePreferences()
	if err != nil {
		return err
	}
	return prefs.AddSearch(ctx, query)
}

func newSearchesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "searches",
		Short: "Show recent transcript searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := ctx.ensurePreferences()
			if err != nil {
				return err
			}
			searches, err := prefs.RecentSearches(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				if searches == nil {
					searches = []string{}
				}
				return writeJSON(cmd, searches)
			}
			for _, q := range searches {
				fmt.Fprintln(cmd.OutOrStdout(), q)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
