package main

import (
	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/collection"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every non-deleted record in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			includeDeleted, err := cmd.Flags().GetBool("include-deleted")
			if err != nil {
				return err
			}

			records, err := c.List(cmd.Context(), nil, nil, collection.ListOptions{IncludeDeleted: includeDeleted})
			if err != nil {
				return err
			}

			return printRecords(records)
		},
	}
	cmd.Flags().Bool("include-deleted", false, "Include pending tombstones in the result")
	return cmd
}
