package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"migplan/internal/drift"
)

func newVerifyCmd(a *app) *cobra.Command {
	var ignore []string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the database with the schema of the current revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.verify(cmd.Context(), ignore)
		},
	}
	cmd.Flags().StringSliceVar(&ignore, "ignore", []string{"SequelizeMeta"}, "Tables to leave out of the comparison")
	return cmd
}

func (a *app) verify(ctx context.Context, ignore []string) error {
	if err := a.cfg.RequireDSN(); err != nil {
		return err
	}
	store, err := a.store()
	if err != nil {
		return err
	}
	state, err := store.Current()
	if err != nil {
		return err
	}
	d, err := a.dialect()
	if err != nil {
		return err
	}
	live, err := d.Inspect(ctx, a.cfg.DSN)
	if err != nil {
		return err
	}

	findings := drift.Compare(state.Snapshot, live, ignore...)
	if len(findings) == 0 {
		a.printf("Database %s (%s %s) matches revision %d\n", live.Name, live.Flavor, live.Version, state.Revision)
		return nil
	}
	a.printf("Database %s differs from revision %d:\n", live.Name, state.Revision)
	for _, f := range findings {
		a.printf("  - %s\n", f)
	}
	return fmt.Errorf("schema drift: %d difference(s)", len(findings))
}
