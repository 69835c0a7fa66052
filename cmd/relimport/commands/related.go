package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
)

type relatedCommand struct {
	globals *GlobalFlags
	output  outputFlags
	root    string
	explain bool
}

// NewRelatedCommand creates the related command.
func NewRelatedCommand(globals *GlobalFlags) *cobra.Command {
	rc := &relatedCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "related <package-dir>...",
		Short: "List files that import the given package directories",
		Long: `Index every Python file under --root once, then list the files whose
imports resolve to each package directory. Relative package paths are
resolved against --root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.root, "root", "r", ".", "Project root to index")
	cmd.Flags().BoolVar(&rc.explain, "explain", false, "Show the import statements and rule behind each match")
	rc.output.register(cmd)

	return cmd
}

func (rc *relatedCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd, rc.globals, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := cmd.Context()

	idx, err := sess.builder(rc.root).Build(ctx)
	if err != nil {
		return err
	}

	rep := report.Related(ctx, idx, args, rc.explain)

	return report.Render(cmd.OutOrStdout(), rep, rc.output.options(sess.cfg))
}
