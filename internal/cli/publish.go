package cli

import (
	"fmt"
	"io"

	"github.com/goliatone/go-mapping/core"
	"github.com/spf13/cobra"
)

type publishOptions struct {
	entity string
}

func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish <rules.yaml>",
		Short: "Publish a rule file as the next version of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.entity, "entity", "", "entity type when the file does not name one")
	return cmd
}

func runPublish(cmd *cobra.Command, rootOpts *RootOptions, opts *publishOptions, path string) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	file, err := LoadRuleFile(path)
	if err != nil {
		return out.failure(ExitCommandError, "load rule file", err)
	}
	entity, err := file.resolveEntity(opts.entity)
	if err != nil {
		return out.failure(ExitCommandError, "resolve entity", err)
	}

	svc, closeFn, err := openService(cmd.Context(), rootOpts)
	if err != nil {
		return out.failure(ExitCommandError, "publish", err)
	}
	defer closeFn()

	version, err := svc.PublishRules(cmd.Context(), entity, file.Rules)
	if err != nil {
		return out.failure(ExitFailure, "publish rules", err)
	}
	result := map[string]any{"entity": entity, "version": version, "rules": len(file.Rules)}
	return out.success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "published %s version %d (%d rules)\n", entity, version, len(file.Rules))
		return err
	})
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "validate <rules.yaml>",
		Short: "Check a rule file without publishing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.entity, "entity", "", "entity type when the file does not name one")
	return cmd
}

func runValidate(cmd *cobra.Command, rootOpts *RootOptions, opts *publishOptions, path string) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	file, err := LoadRuleFile(path)
	if err != nil {
		return out.failure(ExitCommandError, "load rule file", err)
	}
	entity, err := file.resolveEntity(opts.entity)
	if err != nil {
		return out.failure(ExitCommandError, "resolve entity", err)
	}

	issues := core.ValidateRules(entity, file.Rules)
	if err := core.RuleIssuesError(issues); err != nil {
		return out.failure(ExitFailure, "rule file is invalid", err)
	}
	result := map[string]any{"entity": entity, "valid": true, "issues": issues}
	return out.success(result, func(w io.Writer) error {
		for _, issue := range issues {
			if _, err := fmt.Fprintf(w, "%s %s: %s\n", issue.Severity, issue.Code, issue.Message); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s: %d rules ok\n", entity, len(file.Rules))
		return err
	})
}
