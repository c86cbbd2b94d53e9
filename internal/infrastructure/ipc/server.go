package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Controller is the part of the launcher a frontend drives.
type Controller interface {
	Query(ctx context.Context, text string) domain.Generation
	ActivateItem(ctx context.Context, key domain.ItemKey, command string) error
	SetSelection(index int) int
	MoveSelection(delta int) int
	Close()

	// Reload re-reads the configuration and reloads every plugin.
	Reload(ctx context.Context) error
	Config() domain.Config
	Manifest(plugin string) (domain.PluginManifest, error)
}

// Server exposes the bridge on /ws and health and metrics endpoints next
// to it.
type Server struct {
	bridge   *Bridge
	ctrl     Controller
	gatherer prometheus.Gatherer
	logger   ports.Logger
	http     *http.Server
}

// NewServer builds a server. gatherer may be nil, in which case /metrics
// is not mounted.
func NewServer(bridge *Bridge, ctrl Controller, gatherer prometheus.Gatherer, logger ports.Logger) *Server {
	s := &Server{bridge: bridge, ctrl: ctrl, gatherer: gatherer, logger: logger}
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.bridge.Clients()})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", s.handleWS)
	return r
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()
	err := s.http.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer func() {
		_ = c.Close(websocket.StatusInternalError, "server error")
	}()

	cl := s.bridge.register()
	defer s.bridge.unregister(cl)
	s.logger.Debug("frontend connected", map[string]interface{}{"remote": r.RemoteAddr})

	go s.writeLoop(ctx, c, cl)

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			s.logger.Debug("frontend disconnected", map[string]interface{}{"remote": r.RemoteAddr})
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Malformed message", Detail: err.Error()})
			continue
		}
		s.dispatch(ctx, cl, msg)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *websocket.Conn, cl *client) {
	for {
		select {
		case ev := <-cl.send:
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				_ = c.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-cl.gone:
			_ = c.Close(websocket.StatusPolicyViolation, "client too slow")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, cl *client, msg ClientMessage) {
	switch msg.Type {
	case MsgQuery:
		s.ctrl.Query(ctx, msg.Text)
	case MsgSelect:
		s.bridge.Selection(s.ctrl.SetSelection(msg.Index))
	case MsgMove:
		s.bridge.Selection(s.ctrl.MoveSelection(msg.Delta))
	case MsgActivate, MsgComplete:
		key, err := s.bridge.keyOf(msg.ListItemID)
		if err != nil {
			s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Unknown item", Detail: msg.ListItemID})
			return
		}
		command := msg.Command
		if msg.Type == MsgComplete {
			command = domain.CommandComplete
		}
		// Activations outlive the socket read; failures are reported to
		// the frontend by the launcher itself.
		go func() {
			err := s.ctrl.ActivateItem(context.WithoutCancel(ctx), key, command)
			switch {
			case errors.Is(err, domain.ErrItemGone):
				s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Unknown item", Detail: msg.ListItemID})
			case err != nil:
				s.logger.Debug("activation failed", map[string]interface{}{"command": command, "error": err.Error()})
			}
		}()
	case MsgReload:
		go func() {
			if err := s.ctrl.Reload(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("reload failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	case MsgConfig:
		out, err := yaml.Marshal(s.ctrl.Config())
		if err != nil {
			s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Configuration unavailable", Detail: err.Error()})
			return
		}
		s.bridge.sendTo(ctx, cl, Event{Type: EventConfig, Text: string(out)})
	case MsgManifest:
		m, err := s.ctrl.Manifest(msg.Plugin)
		if err != nil {
			s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Unknown plugin", Detail: err.Error()})
			return
		}
		s.bridge.sendTo(ctx, cl, Event{Type: EventManifest, Manifest: manifestView(m)})
	case MsgClose:
		s.ctrl.Close()
	default:
		s.bridge.sendTo(ctx, cl, Event{Type: EventError, Title: "Unknown message", Detail: msg.Type})
	}
}
