package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"twinpane/pkg/engine"
	"twinpane/pkg/fsutil"
)

// Reporter renders the lifecycle of one transfer for the terminal.
type Reporter interface {
	Started(title, id string)
	Progress(p engine.TransferProgress)
	Conflict(rec engine.ConflictRecord)
	Complete(p engine.TransferComplete)
	Failed(p engine.TransferError)
	Cancelled(p engine.TransferCancelled)
	Error(err error)
}

// ConsoleReporter outputs human-readable progress to the terminal.
type ConsoleReporter struct {
	startedAt time.Time
	lastLine  int
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{startedAt: time.Now()}
}

func (r *ConsoleReporter) Started(title, id string) {
	fmt.Printf("%s (%s)\n", title, id)
}

func (r *ConsoleReporter) Progress(p engine.TransferProgress) {
	var line string
	switch p.Phase {
	case engine.PhaseScanning:
		line = fmt.Sprintf("Scanning: %d files, %s", p.FilesTotal, fsutil.FormatBytes(p.BytesTotal))
	default:
		line = fmt.Sprintf("%3.0f%% | %d/%d files | %s/%s | %s | %s",
			fsutil.Percent(p.BytesDone, p.BytesTotal),
			p.FilesDone, p.FilesTotal,
			fsutil.FormatBytes(p.BytesDone), fsutil.FormatBytes(p.BytesTotal),
			fsutil.FormatDuration(time.Since(r.startedAt)),
			fsutil.LeafName(p.CurrentFile))
	}
	r.printLine(line)
}

func (r *ConsoleReporter) Conflict(rec engine.ConflictRecord) {
	r.endLine()
	fmt.Printf("Conflict: %q already exists (existing %s from %s, incoming %s from %s)\n",
		rec.Name,
		fsutil.FormatBytes(rec.ExistingSize), rec.ExistingModifiedAt.Format("2006-01-02 15:04"),
		fsutil.FormatBytes(rec.SourceSize), rec.SourceModifiedAt.Format("2006-01-02 15:04"))
}

func (r *ConsoleReporter) Complete(p engine.TransferComplete) {
	r.endLine()
	fmt.Printf("Done: %d files, %s in %s\n",
		p.FilesProcessed, fsutil.FormatBytes(p.BytesProcessed),
		fsutil.FormatDuration(time.Since(r.startedAt)))
}

func (r *ConsoleReporter) Failed(p engine.TransferError) {
	r.endLine()
	fmt.Fprintf(os.Stderr, "Failed: %v\n", p.Error)
}

func (r *ConsoleReporter) Cancelled(p engine.TransferCancelled) {
	r.endLine()
	if p.RolledBack {
		fmt.Printf("Cancelled after %d files, changes rolled back\n", p.FilesProcessed)
		return
	}
	fmt.Printf("Cancelled after %d files\n", p.FilesProcessed)
}

func (r *ConsoleReporter) Error(err error) {
	r.endLine()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// printLine rewrites the current terminal line, padding over leftovers
// from a longer previous line.
func (r *ConsoleReporter) printLine(line string) {
	pad := r.lastLine - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Printf("\r%s%*s", line, pad, "")
	r.lastLine = len(line)
}

func (r *ConsoleReporter) endLine() {
	if r.lastLine > 0 {
		fmt.Println()
		r.lastLine = 0
	}
}

// JSONReporter outputs machine-readable JSON lines for scripting.
type JSONReporter struct {
	enc *json.Encoder
}

func NewJSONReporter() *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(os.Stdout)}
}

type jsonEvent struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func (r *JSONReporter) emit(typ string, data interface{}) {
	_ = r.enc.Encode(jsonEvent{
		Type:      typ,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	})
}

func (r *JSONReporter) Started(title, id string) {
	r.emit("started", map[string]string{"title": title, "id": id})
}

func (r *JSONReporter) Progress(p engine.TransferProgress) {
	r.emit(engine.EventTransferProgress, p)
}

func (r *JSONReporter) Conflict(rec engine.ConflictRecord) {
	r.emit(engine.EventTransferConflict, rec)
}

func (r *JSONReporter) Complete(p engine.TransferComplete) {
	r.emit(engine.EventTransferComplete, p)
}

func (r *JSONReporter) Failed(p engine.TransferError) {
	r.emit(engine.EventTransferError, p)
}

func (r *JSONReporter) Cancelled(p engine.TransferCancelled) {
	r.emit(engine.EventTransferCancelled, p)
}

func (r *JSONReporter) Error(err error) {
	r.emit("error", map[string]string{"message": err.Error()})
}
