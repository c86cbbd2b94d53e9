package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doeshing/sift/internal/app"
	"github.com/doeshing/sift/internal/infrastructure/instance"
	"github.com/doeshing/sift/internal/infrastructure/ipc"
)

// runLauncher becomes the primary instance and serves frontends until the
// command context is cancelled. A second launch only signals the primary.
// SIGHUP reloads the plugins from the configuration file.
func runLauncher(cmd *cobra.Command, container *app.Container) error {
	ctx := cmd.Context()
	cfg := container.Config
	log := container.Logger

	coord := instance.New(cfg.Instance.Addr, log.With("instance"))
	if err := coord.Acquire(ctx); err != nil {
		if errors.Is(err, instance.ErrAlreadyRunning) {
			fmt.Fprintln(cmd.OutOrStdout(), "sift is already running; asked it to show itself")
			return nil
		}
		return err
	}
	defer coord.Close()

	bridge := ipc.NewBridge(log.With("ipc"))
	session, err := container.NewSession(bridge, nil)
	if err != nil {
		return err
	}
	defer session.Shutdown()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- coord.Serve(ctx) }()

	if cfg.Frontend.Enabled {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", cfg.Frontend.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Frontend.Addr, err)
		}
		srv := ipc.NewServer(bridge, session, container.Registry, log.With("ipc"))
		go func() { errc <- srv.Serve(ctx, ln) }()
		log.Info("frontend bridge listening", map[string]interface{}{"addr": ln.Addr().String()})
	}

	log.Info("launcher ready", map[string]interface{}{
		"instance": coord.Addr(),
		"plugins":  len(session.Plugins()),
	})
	session.Query(ctx, "")

	for {
		select {
		case <-coord.Signals():
			bridge.Show()
			session.Query(ctx, "")
		case <-hup:
			if err := session.Reload(ctx); err != nil {
				log.Warn("reload failed", map[string]interface{}{"error": err.Error()})
			}
		case err := <-errc:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			log.Info("launcher stopping", nil)
			return nil
		}
	}
}
