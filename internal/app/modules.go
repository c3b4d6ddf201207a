package app

import (
	"io"

	"github.com/specialistvlad/gridscript/internal/registry"
	"github.com/specialistvlad/gridscript/modules/env_vars"
	"github.com/specialistvlad/gridscript/modules/http_client"
	"github.com/specialistvlad/gridscript/modules/math"
	"github.com/specialistvlad/gridscript/modules/print"
	"github.com/specialistvlad/gridscript/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the gridscript binary. Console output goes to outW.
func coreModules(outW io.Writer, sock *socketio.Socket) []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: outW},
		&math.Module{},
		&http_client.Module{},
		&socketio.Module{Socket: sock},
	}
}
