package cli

import (
	"io"

	"github.com/goliatone/go-mapping/migrations"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the mapping_rules schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts)
		},
	}
}

func runMigrate(cmd *cobra.Command, opts *RootOptions) error {
	out := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dialect, err := migrations.DialectForDriver(opts.Driver)
	if err != nil {
		return out.failure(ExitCommandError, "resolve dialect", err)
	}
	files, err := migrations.Migrations(dialect)
	if err != nil {
		return out.failure(ExitCommandError, "list migrations", err)
	}

	client, err := openClient(cmd.Context(), opts)
	if err != nil {
		return out.failure(ExitCommandError, "migrate", err)
	}
	defer client.Close()

	result := map[string]any{"dialect": dialect, "migrations": files}
	return out.success(result, func(w io.Writer) error {
		for _, file := range files {
			if _, err := io.WriteString(w, "applied "+file+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}
