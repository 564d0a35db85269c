package main

import (
	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all local records and sync metadata for the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			return c.Clear(cmd.Context())
		},
	}
}
