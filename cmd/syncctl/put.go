package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/record"
)

func newPutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <json>",
		Short: "Create or update a record from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data record.Record
			if err := json.Unmarshal([]byte(args[0]), &data); err != nil {
				return fmt.Errorf("invalid JSON document: %w", err)
			}

			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			var result record.Record
			if data.ID() == "" {
				result, err = c.Create(cmd.Context(), data)
			} else {
				result, err = c.Update(cmd.Context(), data)
			}
			if err != nil {
				return err
			}

			return printRecord(result)
		},
	}
	return cmd
}
