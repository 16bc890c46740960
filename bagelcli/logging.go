// Package bagelcli holds the parts of Bagel that talk to a human: logging
// setup, report rendering, and the watch-mode rebuild loop. The core
// packages (core, fingerprint, cache, build) never import this one.
package bagelcli

import (
	"os"

	"golang.org/x/term"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("bagelcli")

// StdErrIsATerminal is true if the process' stderr is an interactive TTY.
// golang.org/x/term is the maintained replacement for the
// golang.org/x/crypto/ssh/terminal package this check traditionally used.
var StdErrIsATerminal = term.IsTerminal(int(os.Stderr.Fd()))

// InitLogging configures the single shared op/go-logging backend every
// package's named logger writes through. verbosity follows the repeated
// -v convention: 0 is WARNING, 1 is INFO, 2+ is DEBUG.
func InitLogging(verbosity int) {
	level := logging.WARNING
	switch {
	case verbosity >= 2:
		level = logging.DEBUG
	case verbosity == 1:
		level = logging.INFO
	}

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, formatter(StdErrIsATerminal))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

func formatter(coloured bool) logging.Formatter {
	format := "%{time:15:04:05.000} %{level:7s}: %{message}"
	if coloured {
		format = "%{color}" + format + "%{color:reset}"
	}
	return logging.MustStringFormatter(format)
}
