package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/sift/internal/app"
	"github.com/doeshing/sift/internal/infrastructure/pluginrepo"
)

func newInstallCommand(container *app.Container) *cobra.Command {
	var opts pluginrepo.InstallOptions
	cmd := &cobra.Command{
		Use:   "install <dir>",
		Short: "Validate a plugin directory and install it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := container.Repo.Install(args[0], opts)
			if err != nil {
				if errors.Is(err, pluginrepo.ErrExists) {
					return fmt.Errorf("%w (use --force to replace it)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s into %s\n", info.Name(), info.Dir)
			if !enabled(container, info.Name()) {
				fmt.Fprintf(cmd.OutOrStdout(), "Add `- name: %s` under plugins in %s to enable it\n", info.Name(), container.ConfigLoader.Path())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "Install under this name instead of the directory name")
	cmd.Flags().BoolVar(&opts.Overwrite, "force", false, "Replace an installed plugin with the same name")
	return cmd
}

func newUninstallCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.Repo.Uninstall(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newPluginsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins and whether they load",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			infos, err := container.Repo.Discover()
			if err != nil {
				fmt.Fprintf(out, "[WARN] %v\n", err)
			}
			if len(infos) == 0 {
				fmt.Fprintf(out, "No plugins in %s\n", container.Repo.Dir())
				return nil
			}
			for _, info := range infos {
				status := "disabled"
				if pc, ok := pluginConfig(container, info.Name()); ok {
					status = "ok"
					p, err := container.PluginLoader.Load(info, pc)
					if err != nil {
						status = "error: " + err.Error()
					} else {
						_ = p.Close()
					}
					if pc.Prefix != "" {
						status += fmt.Sprintf(" (prefix %q)", pc.Prefix)
					}
				}
				commands := make([]string, 0, len(info.Manifest.Commands))
				for _, c := range info.Manifest.Commands {
					commands = append(commands, c.ID)
				}
				fmt.Fprintf(out, "%-20s %s\n", info.Name(), status)
				if info.Manifest.Description != "" {
					fmt.Fprintf(out, "  %s\n", info.Manifest.Description)
				}
				if len(commands) > 0 {
					fmt.Fprintf(out, "  commands: %s\n", strings.Join(commands, ", "))
				}
			}
			return nil
		},
	}
}

func enabled(container *app.Container, name string) bool {
	_, ok := pluginConfig(container, name)
	return ok
}
