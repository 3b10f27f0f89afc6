package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-mapping/core"
	"github.com/spf13/cobra"
)

type mapOptions struct {
	direction string
	input     string
	version   int
	sparse    bool
}

func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &mapOptions{}
	cmd := &cobra.Command{
		Use:   "map <entity>",
		Short: "Map a JSON record, or an array of records, with an entity rule version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.direction, "direction", "d", string(core.DirectionToExternal), "to_external or to_internal")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSON input file, - for stdin")
	cmd.Flags().IntVar(&opts.version, "version", 0, "rule version, 0 for latest")
	cmd.Flags().BoolVar(&opts.sparse, "sparse", false, "omit targets whose source is missing (to_external only)")
	return cmd
}

func runMap(cmd *cobra.Command, rootOpts *RootOptions, opts *mapOptions, rawEntity string) error {
	out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	entity, err := core.ParseEntityType(rawEntity)
	if err != nil {
		return out.failure(ExitCommandError, "parse entity", err)
	}
	direction, err := core.ParseDirection(opts.direction)
	if err != nil {
		return out.failure(ExitCommandError, "parse direction", err)
	}
	records, batch, err := readRecords(cmd.InOrStdin(), opts.input)
	if err != nil {
		return out.failure(ExitCommandError, "read input", err)
	}

	svc, closeFn, err := openService(cmd.Context(), rootOpts)
	if err != nil {
		return out.failure(ExitCommandError, "map", err)
	}
	defer closeFn()

	mapOpts := core.MapOptions{Version: opts.version, Sparse: opts.sparse}
	var result any
	if batch {
		result, err = svc.MapMany(cmd.Context(), entity, direction, records, mapOpts)
	} else {
		result, err = svc.Map(cmd.Context(), entity, direction, records[0], mapOpts)
	}
	if err != nil {
		return out.failure(ExitFailure, "map records", err)
	}
	return out.success(result, func(w io.Writer) error {
		return writeJSON(w, result)
	})
}

// readRecords decodes one JSON object or an array of objects. batch reports
// whether the input was an array.
func readRecords(stdin io.Reader, path string) (records []map[string]any, batch bool, err error) {
	var data []byte
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, false, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, fmt.Errorf("input is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if data[0] == '[' {
		if err := decoder.Decode(&records); err != nil {
			return nil, false, fmt.Errorf("decode record array: %w", err)
		}
		return records, true, nil
	}
	var record map[string]any
	if err := decoder.Decode(&record); err != nil {
		return nil, false, fmt.Errorf("decode record: %w", err)
	}
	return []map[string]any{record}, false, nil
}
