// File: cmd/courselens/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/courselens/cmd"
	"github.com/xkilldash9x/courselens/internal/observability"
)

const panicLogFile = "panic.log"

const banner = `
   ___                       _
  / __|___ _  _ _ _ ___ ___ | |   ___ _ _  ___
 | (__/ _ \ || | '_(_-</ -_)| |__/ -_) ' \(_-<
  \___\___/\_,_|_| /__/\___||____\___|_||_/__/

 Type a command (summarize, transcript, automate, serve, help) or exit.

`

// Function variables so tests can observe exits and panic logs.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	executeArgs = cmd.ExecuteArgs
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(0)
			} else {
				osExit(1)
			}
		}
		return
	}

	fmt.Print(banner)
	if err := runShell(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
		return
	}
	fmt.Println("Exiting courselens.")
}

// runShell reads commands line by line until EOF, exit or quit. Each line
// runs on a fresh command tree; failures are reported and the shell goes on.
func runShell(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "courselens > ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		executeInteractiveCommand(ctx, strings.Fields(line))
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func executeInteractiveCommand(ctx context.Context, args []string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: command panicked: %v\n", r)
		}
	}()
	// Errors are already reported by the command tree.
	_ = executeArgs(ctx, args)
}

// handlePanic writes the panic and its stack to panic.log and exits non-zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	report := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", report)
		osExit(1)
		return
	}
	fmt.Fprintf(os.Stderr, "courselens crashed. Details were written to %s.\n", panicLogFile)
	osExit(2)
}
