package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"migplan/internal/diff"
	"migplan/internal/migration"
	"migplan/internal/output"
	"migplan/internal/plan"
)

func newGenerateCmd(a *app) *cobra.Command {
	var info migration.Info
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a migration from the stored state to the current models",
		Long: `Generate compares the models file with the state recorded by the last
generated migration. When they differ it writes the next migration script
and records the models as the new state.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.generate(info, dryRun)
		},
	}
	cmd.Flags().StringVarP(&info.Name, "name", "n", "", "Migration name")
	cmd.Flags().StringVar(&info.Comment, "comment", "", "Migration comment")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the migration in --format instead of saving it")
	return cmd
}

func (a *app) generate(info migration.Info, dryRun bool) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	state, err := store.Current()
	if err != nil {
		return err
	}
	current, w, err := a.snapshot()
	if err != nil {
		return err
	}

	up, down, err := plan.Generate(state.Snapshot, current, w)
	if err != nil {
		return err
	}
	if len(up) == 0 {
		a.printf("No changes found\n")
		return nil
	}

	info.Revision = state.Revision + 1
	info.Created = a.now()
	art, err := migration.Serialize(up, down, info)
	if err != nil {
		return fmt.Errorf("failed to build migration: %w", err)
	}
	for _, line := range art.Summary {
		a.printf("[Actions] %s\n", line)
	}
	if n := len(w.List()); n > 0 {
		a.printf("%d warning(s): review the migration before running it\n", n)
	}

	if dryRun {
		f, err := a.formatter()
		if err != nil {
			return err
		}
		return output.Write(a.out, f, art)
	}

	path, err := store.Save(art, current)
	if err != nil {
		return err
	}
	a.printf("New migration to revision %d has been saved to file '%s'\n", art.Info.Revision, path)
	return nil
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the changes and the migration generate would write",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.plan()
		},
	}
}

func (a *app) plan() error {
	store, err := a.store()
	if err != nil {
		return err
	}
	state, err := store.Current()
	if err != nil {
		return err
	}
	current, w, err := a.snapshot()
	if err != nil {
		return err
	}
	f, err := a.formatter()
	if err != nil {
		return err
	}

	changes, err := diff.Diff(state.Snapshot, current)
	if err != nil {
		return err
	}
	text, err := f.FormatChanges(changes)
	if err != nil {
		return err
	}
	a.printf("%s", text)
	if len(changes) == 0 {
		return nil
	}

	up, down, err := plan.Generate(state.Snapshot, current, w)
	if err != nil {
		return err
	}
	if len(up) == 0 {
		a.printf("No changes found\n")
		return nil
	}
	art, err := migration.Serialize(up, down, migration.Info{Revision: state.Revision + 1, Created: a.now()})
	if err != nil {
		return fmt.Errorf("failed to build migration: %w", err)
	}
	a.printf("\n")
	return output.Write(a.out, f, art)
}
