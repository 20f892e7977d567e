package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the migrations of the store and the current revision",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.status()
		},
	}
}

func (a *app) status() error {
	store, err := a.store()
	if err != nil {
		return err
	}
	state, err := store.Current()
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}

	a.printf("Migrations directory: %s\n", store.Dir())
	a.printf("Current revision: %d (%d table(s))\n", state.Revision, len(state.Snapshot.Tables))
	if len(entries) == 0 {
		a.printf("No migrations found\n")
		return nil
	}
	table := tablewriter.NewWriter(a.out)
	table.Header("", "Revision", "Name")
	for _, e := range entries {
		mark := ""
		if e.Revision == state.Revision {
			mark = "*"
		}
		name := e.Name
		if name == "" {
			name = "-"
		}
		if err := table.Append([]string{mark, strconv.Itoa(e.Revision), name}); err != nil {
			return err
		}
	}
	return table.Render()
}
