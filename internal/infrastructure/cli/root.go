package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/sift/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:   "sift",
		Short: "sift - scriptable launcher",
		Long: "sift runs a launcher whose results come from sandboxed JavaScript plugins.\n" +
			"Run without arguments to start the launcher, or focus it if it is already running.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(cmd, container)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return container.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newQueryCommand(container))
	root.AddCommand(newInstallCommand(container))
	root.AddCommand(newUninstallCommand(container))
	root.AddCommand(newPluginsCommand(container))
	root.AddCommand(newDoctorCommand(container))
	root.AddCommand(newVersionCommand())
	return root, nil
}
