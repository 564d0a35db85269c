package main

import (
	"github.com/spf13/cobra"
)

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record, leaving a tombstone if it was ever synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			r, err := c.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printRecord(r)
		},
	}
}
