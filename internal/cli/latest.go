package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goliatone/go-mapping/core"
	"github.com/spf13/cobra"
)

func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <entity>",
		Short: "Print the latest published rule version of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(cmd, rootOpts, args[0])
		},
	}
}

func runLatest(cmd *cobra.Command, rootOpts *RootOptions, rawEntity string) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	entity, err := core.ParseEntityType(rawEntity)
	if err != nil {
		return out.failure(ExitCommandError, "parse entity", err)
	}

	svc, closeFn, err := openService(cmd.Context(), rootOpts)
	if err != nil {
		return out.failure(ExitCommandError, "latest", err)
	}
	defer closeFn()

	version, err := svc.GetLatestVersion(cmd.Context(), entity)
	if err != nil {
		return out.failure(ExitFailure, "resolve latest version", err)
	}
	return out.success(map[string]any{"entity": entity, "version": version}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, version)
		return err
	})
}

type rulesOptions struct {
	version int
}

func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &rulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules <entity>",
		Short: "List the rules of an entity version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().IntVar(&opts.version, "version", 0, "rule version, 0 for latest")
	return cmd
}

func runRules(cmd *cobra.Command, rootOpts *RootOptions, opts *rulesOptions, rawEntity string) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	entity, err := core.ParseEntityType(rawEntity)
	if err != nil {
		return out.failure(ExitCommandError, "parse entity", err)
	}

	svc, closeFn, err := openService(cmd.Context(), rootOpts)
	if err != nil {
		return out.failure(ExitCommandError, "rules", err)
	}
	defer closeFn()

	set, err := svc.RuleSet(cmd.Context(), entity, opts.version)
	if err != nil {
		return out.failure(ExitFailure, "load rule set", err)
	}
	return out.success(set, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "# %s version %d\n", set.Entity, set.Version)
		fmt.Fprintln(tw, "DIRECTION\tSOURCE\tTARGET\tREQUIRED\tTRANSFORM\tDEFAULT")
		for _, direction := range []core.Direction{core.DirectionToExternal, core.DirectionToInternal} {
			for _, rule := range set.Rules(direction) {
				defaultValue := ""
				if rule.DefaultValue != nil {
					defaultValue = fmt.Sprint(rule.DefaultValue)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
					direction, rule.SourcePath, rule.TargetPath, rule.IsRequired, rule.Transform, defaultValue)
			}
		}
		return tw.Flush()
	})
}
