// Package socketio bridges a socket.io server and the script engine.
// Incoming events are handed to a Handler, which the host uses to dispatch
// them into scripts, and scripts emit events back through the "Socket"
// class.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrNotConnected is returned by Emit before Connect succeeded or after
// Close.
var ErrNotConnected = errors.New("socket is not connected")

// Config describes the server to connect to.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// Events lists the event names forwarded to the handler. Empty means
	// every event.
	Events []string
	// ConnectTimeout defaults to 15s.
	ConnectTimeout time.Duration
}

// Handler receives an incoming event with its first argument decoded as
// named fields.
type Handler func(event string, data map[string]any)

// Module registers the "Socket" class backed by Socket.
type Module struct {
	Socket *Socket
}

// Register registers the class and its functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	if m.Socket == nil {
		m.Socket = &Socket{}
	}
	r.RegisterClass("Socket", (*Socket)(nil), registry.Singleton(m.Socket))
	r.RegisterFunction("Socket", "Emit", (*Socket).Emit, registry.Args("event", "data"))
	r.RegisterFunction("Socket", "EmitText", (*Socket).EmitText, registry.Args("event", "text"))
	r.RegisterFunction("Socket", "Connected", (*Socket).Connected)
}

// Socket is a persistent socket.io client connection.
type Socket struct {
	mu sync.Mutex
	io *socket.Socket
}

// Connect dials cfg.URL and waits for the connection to be established.
// Incoming events are passed to handler on the client's own goroutines.
func (s *Socket) Connect(ctx context.Context, cfg Config, handler Handler) error {
	logger := ctxlog.FromContext(ctx).With("module", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid socket.io URL %q", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	forward := func(event string, args []any) {
		logger.Debug("Event received.", "event", event)
		handler(event, Fields(args))
	}
	if len(cfg.Events) == 0 {
		io.OnAny(func(args ...any) {
			if len(args) == 0 {
				return
			}
			if event, ok := args[0].(string); ok {
				forward(event, args[1:])
			}
		})
	} else {
		for _, event := range cfg.Events {
			io.On(types.EventName(event), func(args ...any) { forward(event, args) })
		}
	}

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "namespace", cfg.Namespace, "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(args ...any) {
		connected <- connectError(args)
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	s.mu.Lock()
	s.io = io
	s.mu.Unlock()
	return nil
}

// Emit sends an event whose payload is data parsed as a JSON document.
func (s *Socket) Emit(event, data string) error {
	var payload any
	if data != "" {
		if err := sonic.UnmarshalString(data, &payload); err != nil {
			return fmt.Errorf("emit %s: payload is not JSON: %w", event, err)
		}
	}
	return s.emit(event, payload)
}

// EmitText sends an event with a plain string payload.
func (s *Socket) EmitText(event, text string) error {
	return s.emit(event, text)
}

func (s *Socket) emit(event string, payload any) error {
	s.mu.Lock()
	io := s.io
	s.mu.Unlock()
	if io == nil {
		return ErrNotConnected
	}
	if payload == nil {
		return io.Emit(event)
	}
	return io.Emit(event, payload)
}

// Connected reports whether the client holds a live connection.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.io != nil && s.io.Connected()
}

// Close disconnects the client. It is safe to call more than once.
func (s *Socket) Close() {
	s.mu.Lock()
	io := s.io
	s.io = nil
	s.mu.Unlock()
	if io != nil {
		io.Disconnect()
	}
}

// Fields turns the arguments of an incoming event into named fields. An
// object argument contributes its keys, any other first argument is stored
// under "data".
func Fields(args []any) map[string]any {
	if len(args) == 0 {
		return map[string]any{}
	}
	if m, ok := args[0].(map[string]any); ok {
		return m
	}
	return map[string]any{"data": args[0]}
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect_error without details")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}
