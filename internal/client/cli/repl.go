package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Add(ctx context.Context, args []string) error
	Meta(ctx context.Context, args []string) error
	List(ctx context.Context) error
	RunFlow(ctx context.Context) error
	Decrypt(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Forget(ctx context.Context, args []string) error
}

const helpText = "Available commands: add <path>..., meta [name=value]..., (l)ist, run, decrypt <src> <dst> [iv_hex], history, forget <path>..., exit"

func newScanner(in io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

// runREPL reads one command per line and dispatches it to a. It exits on
// scanner EOF, on "exit"/"quit", or when ctx is cancelled.
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("attach (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "add":
			err = a.Add(ctx, args)

		case "meta":
			err = a.Meta(ctx, args)

		case "l", "list":
			err = a.List(ctx)

		case "run":
			err = a.RunFlow(ctx)

		case "decrypt":
			err = a.Decrypt(ctx, args)

		case "history":
			err = a.History(ctx)

		case "forget":
			err = a.Forget(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
