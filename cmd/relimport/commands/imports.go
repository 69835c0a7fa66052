package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/pyimport"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
	"github.com/Sumatoshi-tech/relimport/pkg/textenc"
)

type importsCommand struct {
	globals *GlobalFlags
	output  outputFlags
}

// NewImportsCommand creates the imports command.
func NewImportsCommand(globals *GlobalFlags) *cobra.Command {
	ic := &importsCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "imports [path]",
		Short: "List the import records extracted from a file or tree",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ic.run,
	}

	ic.output.register(cmd)

	return cmd
}

func (ic *importsCommand) run(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	sess, err := newSession(cmd, ic.globals, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	opts := ic.output.options(sess.cfg)

	if !info.IsDir() {
		files, fileErr := ic.single(cmd, path)
		if fileErr != nil {
			return fileErr
		}

		return report.RenderImports(cmd.OutOrStdout(), files, opts)
	}

	idx, err := sess.builder(path).Build(cmd.Context())
	if err != nil {
		return err
	}

	return report.RenderImports(cmd.OutOrStdout(), report.Imports(idx), opts)
}

func (ic *importsCommand) single(cmd *cobra.Command, path string) ([]report.FileImports, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	source, err := textenc.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ex, err := pyimport.NewExtractor()
	if err != nil {
		return nil, err
	}

	records, err := ex.Extract(cmd.Context(), source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return []report.FileImports{{Path: abs, RelPath: filepath.ToSlash(path), Records: records}}, nil
}
