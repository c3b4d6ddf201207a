package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/registry"
)

// Module registers the "Console" class. Out defaults to os.Stdout.
type Module struct {
	Out io.Writer
}

// Console is the output sink scripts print to. Its singleton is used when a
// call leaves the self pin unconnected.
type Console struct {
	// Prefix is written before every line.
	Prefix string

	mu  sync.Mutex
	out io.Writer
}

// Line writes text followed by a newline.
func (c *Console) Line(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, c.Prefix+text)
}

// Log writes text to the structured log instead of the console.
func (c *Console) Log(ctx context.Context, text string) {
	ctxlog.FromContext(ctx).Info(text, "source", "script", "prefix", c.Prefix)
}

// Register registers the class and its functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterClass("Console", (*Console)(nil), registry.Singleton(&Console{out: out}))
	r.RegisterFunction("Console", "Line", (*Console).Line, registry.Args("text"))
	r.RegisterFunction("Console", "Log", func(ctx context.Context, c *Console, text string) {
		c.Log(ctx, text)
	}, registry.Args("text"))
	r.RegisterFunction("Console", "Join", func(a, b string) string { return a + b }, registry.Const(), registry.Args("a", "b"))
}
