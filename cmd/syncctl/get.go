package main

import (
	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/collection"
)

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a single record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			includeDeleted, err := cmd.Flags().GetBool("include-deleted")
			if err != nil {
				return err
			}

			r, err := c.Get(cmd.Context(), args[0], collection.GetOptions{IncludeDeleted: includeDeleted})
			if err != nil {
				return err
			}

			return printRecord(r)
		},
	}
	cmd.Flags().Bool("include-deleted", false, "Return a pending tombstone instead of reporting it as not found")
	return cmd
}
