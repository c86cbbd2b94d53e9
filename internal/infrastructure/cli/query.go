package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/sift/internal/app"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/infrastructure/clipboard"
)

// headlessFrontend records what the launcher shows so it can be printed.
type headlessFrontend struct {
	mu     sync.Mutex
	items  []domain.ListItem
	input  *domain.Input
	errors []string
	closed bool
}

func (f *headlessFrontend) InputChanged(in domain.Input) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = &in
}

func (f *headlessFrontend) ListChanged(items []domain.ListItem, _ *domain.ListStyle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *headlessFrontend) Error(title, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, fmt.Sprintf("%s: %s", title, detail))
}

func (f *headlessFrontend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func newQueryCommand(container *app.Container) *cobra.Command {
	var (
		activate int
		command  string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run one query without a frontend and print the ranked list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			front := &headlessFrontend{}
			clip := &clipboard.Memory{}
			engine, err := container.NewEngine(front, clip)
			if err != nil {
				return err
			}
			defer engine.Shutdown()

			engine.Query(ctx, strings.Join(args, " "))
			engine.Wait()
			out := cmd.OutOrStdout()
			renderList(out, front)

			if activate < 0 {
				return nil
			}
			if err := engine.ActivateCommand(ctx, activate, command); err != nil {
				return err
			}
			engine.Wait()
			renderActivation(out, front, clip)
			return nil
		},
	}
	cmd.Flags().IntVar(&activate, "activate", -1, "Activate the item at this index after the query")
	cmd.Flags().StringVar(&command, "command", domain.CommandActivate, "Command to run on the activated item (activate, alt-activate, complete or a hotkey)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}

func renderList(out io.Writer, f *headlessFrontend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.errors {
		fmt.Fprintf(out, "[ERROR] %s\n", e)
	}
	f.errors = nil
	if len(f.items) == 0 {
		fmt.Fprintln(out, "(no results)")
		return
	}
	for i, it := range f.items {
		line := fmt.Sprintf("%3d  %-40s [%s]", i, it.Title, it.PluginName())
		if it.Description != "" {
			line += "  " + it.Description
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}

func renderActivation(out io.Writer, f *headlessFrontend, clip *clipboard.Memory) {
	if clip.Last != "" {
		fmt.Fprintf(out, "copied: %s\n", clip.Last)
	}
	f.mu.Lock()
	in, closed := f.input, f.closed
	f.mu.Unlock()
	if in != nil {
		fmt.Fprintf(out, "input: %s\n", in.Contents)
		renderList(out, f)
	}
	if closed {
		fmt.Fprintln(out, "closed")
	}
}
