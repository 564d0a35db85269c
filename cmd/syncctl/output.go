package main

import (
	"encoding/json"
	"fmt"

	"github.com/maxiofs/collectionsync/internal/collection"
	"github.com/maxiofs/collectionsync/internal/record"
)

func printRecord(r record.Record) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printRecords(records []record.Record) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

type syncSummary struct {
	LastModified int64    `json:"last_modified"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	Deleted      int      `json:"deleted"`
	Published    int      `json:"published"`
	Skipped      int      `json:"skipped"`
	Resolved     int      `json:"resolved"`
	Conflicts    int      `json:"conflicts"`
	Errors       []string `json:"errors,omitempty"`
}

func printSyncResult(result *collection.SyncResult) error {
	summary := syncSummary{
		LastModified: result.LastModified,
		Created:      len(result.Created),
		Updated:      len(result.Updated),
		Deleted:      len(result.Deleted),
		Published:    len(result.Published),
		Skipped:      len(result.Skipped),
		Resolved:     len(result.Resolved),
		Conflicts:    len(result.Conflicts),
	}
	for _, e := range result.Errors {
		summary.Errors = append(summary.Errors, e.Error())
	}

	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	if !result.OK() {
		return fmt.Errorf("sync completed with %d error(s) and %d conflict(s)", len(result.Errors), len(result.Conflicts))
	}
	return nil
}
