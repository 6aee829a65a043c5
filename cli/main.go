// Command twinpane-cli runs a single copy or move from the terminal,
// driving the same engine the desktop shell uses and rendering its
// event stream as live progress.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"twinpane/internal/core"
	"twinpane/internal/logging"
	"twinpane/pkg/engine"
	"twinpane/pkg/fsutil"
	"twinpane/pkg/fsys"
)

var (
	destPath    string
	policy      string
	move        bool
	jsonOutput  bool
	ignoreGlobs string
	logLevel    string
)

func init() {
	flag.StringVar(&destPath, "dest", "", "Destination directory")
	flag.StringVar(&policy, "policy", "stop", "Conflict policy: 'stop', 'skip', or 'overwrite'")
	flag.BoolVar(&move, "move", false, "Move instead of copy")
	flag.BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON (one event per line)")
	flag.StringVar(&ignoreGlobs, "ignore", "", "Comma-separated glob patterns to skip (e.g. '**/*.tmp,**/.git')")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level for engine diagnostics")
}

func main() {
	flag.Parse()
	sources := flag.Args()

	if destPath == "" || len(sources) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s -dest <dir> [-move] [-policy stop|skip|overwrite] [-json] <source>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	conflictPolicy := engine.ConflictPolicy(policy)
	switch conflictPolicy {
	case engine.PolicyStop, engine.PolicySkip, engine.PolicyOverwrite:
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid policy '%s'\n", policy)
		os.Exit(1)
	}

	log := logging.New(logLevel, !jsonOutput)

	fs := fsys.Local{}
	bus := core.NewBus()
	scanner := engine.NewScanner(fs, bus,
		engine.WithScanLogger(log),
		engine.WithIgnoreGlobs(splitGlobs(ignoreGlobs)),
	)
	transfers := engine.NewTransfers(fs, scanner, bus,
		engine.WithTransferLogger(log),
	)

	// Subscribe before starting so the first progress event is not missed.
	sub := bus.Subscribe(
		engine.EventTransferProgress,
		engine.EventTransferConflict,
		engine.EventTransferComplete,
		engine.EventTransferError,
		engine.EventTransferCancelled,
	)
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := reporter()

	id, err := transfers.Start(context.Background(), engine.TransferRequest{
		Sources:     sources,
		Destination: destPath,
		Policy:      conflictPolicy,
		Move:        move,
	})
	if err != nil {
		rep.Error(err)
		os.Exit(1)
	}

	verb := "copy"
	if move {
		verb = "move"
	}
	rep.Started(fsutil.OperationTitle(verb, sources), id)

	os.Exit(runLoop(ctx, transfers, sub, id, rep))
}

func reporter() Reporter {
	if jsonOutput {
		return NewJSONReporter()
	}
	return NewConsoleReporter()
}

// runLoop consumes engine events for one transfer until it reaches a
// terminal state. Interrupt cancels the transfer with rollback; the
// loop then keeps draining until the cancelled event arrives.
func runLoop(ctx context.Context, transfers *engine.Transfers, sub *core.Subscription, id string, rep Reporter) int {
	stdin := bufio.NewReader(os.Stdin)
	interrupted := false

	tracker := core.NewTracker()
	tracker.Track(id)

	for {
		select {
		case <-ctx.Done():
			if !interrupted {
				interrupted = true
				if err := transfers.Cancel(id, true); err != nil {
					rep.Error(err)
					return 1
				}
			}
			ctx = context.Background()
		case ev, ok := <-sub.C:
			if !ok {
				return 1
			}
			if !tracker.Accept(ev) {
				continue
			}
			switch p := ev.Payload.(type) {
			case engine.TransferProgress:
				rep.Progress(p)
			case engine.TransferConflict:
				d := decide(stdin, p.Conflict, rep)
				if err := transfers.Resolve(id, d); err != nil {
					rep.Error(err)
				}
			case engine.TransferComplete:
				rep.Complete(p)
				ack(transfers, id, rep)
				return 0
			case engine.TransferError:
				rep.Failed(p)
				ack(transfers, id, rep)
				return 1
			case engine.TransferCancelled:
				rep.Cancelled(p)
				ack(transfers, id, rep)
				return 130
			}
		}
	}
}

func ack(transfers *engine.Transfers, id string, rep Reporter) {
	if err := transfers.Ack(id); err != nil {
		rep.Error(err)
	}
}

// decide resolves a conflict pause. In JSON mode there is no prompt, so
// the safe choice is to skip the conflicting item and continue.
func decide(stdin *bufio.Reader, rec engine.ConflictRecord, rep Reporter) engine.Decision {
	rep.Conflict(rec)
	if jsonOutput {
		return engine.DecisionSkipThis
	}

	for {
		fmt.Print("  [o]verwrite, [s]kip, overwrite [A]ll, skip a[L]l, a[b]ort? ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return engine.DecisionAbort
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o":
			return engine.DecisionOverwriteThis
		case "s":
			return engine.DecisionSkipThis
		case "a":
			return engine.DecisionOverwriteRemaining
		case "l":
			return engine.DecisionSkipRemaining
		case "b":
			return engine.DecisionAbort
		}
	}
}

func splitGlobs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	globs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			globs = append(globs, p)
		}
	}
	return globs
}
