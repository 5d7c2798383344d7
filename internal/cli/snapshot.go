package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specloom/loom/internal/store"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and list spec snapshots",
		Long: `Persists spec documents in a local SQLite database so later runs can
re-validate or diff a known revision.`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "loom.db", "snapshot database path")

	cmd.AddCommand(newSnapshotSaveCommand(rootOpts, &dbPath))
	cmd.AddCommand(newSnapshotListCommand(rootOpts, &dbPath))

	return cmd
}

func newSnapshotSaveCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:           "save <spec-file>",
		Short:         "Save a spec document as a new snapshot revision",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(rootOpts, *dbPath, name, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "snapshot name (defaults to the document's meta.id)")

	return cmd
}

func newSnapshotListCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved snapshots, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(rootOpts, *dbPath, cmd)
		},
	}
}

func runSnapshotSave(opts *RootOptions, dbPath, name, specPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := loadOrFail(formatter, specPath)
	if err != nil {
		return err
	}

	if name == "" {
		name = doc.Meta.ID
	}
	if name == "" {
		message := "snapshot name required: pass --name or set meta.id in the document"
		_ = formatter.Error(ErrCodeStore, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer s.Close()

	id, err := s.Save(cmd.Context(), name, doc)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.JSON(map[string]string{"id": id, "name": name})
	}
	fmt.Fprintf(formatter.Writer, "Saved %s as %s\n", name, id)
	return nil
}

func runSnapshotList(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer s.Close()

	snaps, err := s.List(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.JSON(snaps)
	}

	w := formatter.Writer
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots")
		return nil
	}
	for _, snap := range snaps {
		fmt.Fprintf(w, "%s  %s  %s\n", snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.Name)
	}
	return nil
}
