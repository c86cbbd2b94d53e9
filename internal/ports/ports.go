// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the launcher core and the
// adapters around it. The core (plugin handles, protocol engine, result
// list) depends only on these interfaces; sandboxes, the capability surface,
// stores and frontends are concrete adapters in the infrastructure layer.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Sandbox, Frontend)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/sift/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from $XDG_CONFIG_HOME/sift/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Sandbox is one isolated plugin execution unit. It exposes exactly the
// three entry points below and nothing else. Implementations serialize
// calls: a sandbox is never re-entered while a call is outstanding.
type Sandbox interface {
	Query(ctx context.Context, text string) (SandboxResult, error)
	HandleDeferred(ctx context.Context, query string, result domain.DeferredResult) (SandboxResult, error)
	Activate(ctx context.Context, id domain.ItemID, command string) ([]domain.Action, error)
	Close() error
}

// SandboxItem is an item as it crosses the sandbox boundary, before it is
// bound to its owning plugin.
type SandboxItem struct {
	ID          domain.ItemID
	Title       string
	Description string
	Metadata    string
	Icon        *domain.Icon
}

// SandboxResult is the protocol-level form of domain.QueryResult.
type SandboxResult struct {
	Kind   domain.QueryResultKind
	Items  []SandboxItem
	Style  *domain.ListStyle
	Action domain.DeferredAction
}

// SandboxFactory builds sandboxes for discovered plugins.
type SandboxFactory interface {
	New(info domain.PluginInfo, config map[string]any) (Sandbox, error)
}

// Capabilities is the fixed set of privileged operations a sandbox may
// invoke on the host.
type Capabilities interface {
	Spawn(ctx context.Context, req domain.SpawnRequest) (domain.ProcessOutput, error)
	ConfigDir() string
	DataDir() string
	ReadDir(path string) ([]string, error)
	ReadFile(path string) ([]byte, error)
	Rank(query string, items []SandboxItem, weights Weights, plugin string) []SandboxItem
}

// Weights are linear coefficients over independently normalized sub-scores.
type Weights struct {
	Title       float64
	Description float64
	Metadata    float64
	Frequency   float64
}

// DefaultWeights favours previously activated items over plain text matches.
func DefaultWeights() Weights {
	return Weights{Title: 1.0, Description: 0.0, Metadata: 0.0, Frequency: 3.0}
}

// SchemaValidator checks plugin config values against the manifest schema.
type SchemaValidator interface {
	Validate(schema map[string]any, config map[string]any) error
	ApplyDefaults(schema map[string]any, config map[string]any) map[string]any
}

// PluginLoader discovers plugins on disk.
type PluginLoader interface {
	Discover() ([]domain.PluginInfo, error)
	Lookup(name string) (domain.PluginInfo, error)
}

// FrequencyStore counts activations so ranking can favour familiar items.
type FrequencyStore interface {
	Record(plugin, title string) error
	Counts(plugin string, titles []string) (map[string]int, error)
	Clear() error
}

// Frontend is implemented by the presentation layer. The core calls it;
// it never calls back into the core synchronously.
type Frontend interface {
	InputChanged(input domain.Input)
	ListChanged(items []domain.ListItem, style *domain.ListStyle)
	Error(title, detail string)
	Close()
}

// Clipboard copies text for the Copy action.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// CommandRunner starts detached processes for RunCommand and RunShell.
type CommandRunner interface {
	Start(ctx context.Context, program string, args []string) error
	StartShell(ctx context.Context, line string) error
}

// Metrics records launcher activity.
type Metrics interface {
	ObservePluginCall(plugin, phase string, d time.Duration, ok bool)
	StaleDiscarded(plugin string)
	ActionExecuted(kind string)
	SetGeneration(g domain.Generation)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
