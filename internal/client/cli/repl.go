package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	AddMap(ctx context.Context) error
	AddPin(ctx context.Context) error
	ListMaps(ctx context.Context) error
	ListPins(ctx context.Context) error
	Sync(ctx context.Context) error
	SetPassphrase(ctx context.Context) error
	Wipe(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the showme CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//   - help     — show available commands
//   - addmap   — create a map
//   - addpin   — drop a pin on a map
//   - maps     — list known maps
//   - pins     — list a map's pins
//   - sync     — drain the pending operation queue now
//   - setkey   — derive the encryption key from a passphrase
//   - wipe     — destroy all local data (panic wipe)
//   - exit | quit
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("showme %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn("Available commands: addmap, addpin, maps, pins, sync, setkey, wipe, exit")
		case "addmap":
			a.AddMap(ctx)
		case "addpin":
			a.AddPin(ctx)
		case "maps":
			a.ListMaps(ctx)
		case "pins":
			a.ListPins(ctx)
		case "sync":
			a.Sync(ctx)
		case "setkey":
			a.SetPassphrase(ctx)
		case "wipe":
			a.Wipe(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn(fmt.Sprintf("Unknown command: %s", cmd))
		}
	}
}
