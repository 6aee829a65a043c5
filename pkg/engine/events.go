package engine

// Event kinds published by the scan and transfer engines. These are the
// wire names subscribers and UI adapters filter on.
const (
	EventScanProgress  = "scan-progress"
	EventScanComplete  = "scan-complete"
	EventScanError     = "scan-error"
	EventScanCancelled = "scan-cancelled"

	EventTransferProgress  = "transfer-progress"
	EventTransferConflict  = "transfer-conflict"
	EventTransferComplete  = "transfer-complete"
	EventTransferError     = "transfer-error"
	EventTransferCancelled = "transfer-cancelled"
)

// TerminalKind reports whether kind ends the operation it belongs to.
// Every started scan or transfer emits exactly one terminal event.
func TerminalKind(kind string) bool {
	switch kind {
	case EventScanComplete, EventScanError, EventScanCancelled,
		EventTransferComplete, EventTransferError, EventTransferCancelled:
		return true
	}
	return false
}

// EventSink receives every event the engines produce. Implementations must
// not block; slow consumers are the sink's problem, not the engine's.
type EventSink interface {
	Emit(kind, operationID string, payload interface{})
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(kind, operationID string, payload interface{}) {}

// ScanProgress is the payload of scan-progress events.
type ScanProgress struct {
	ID           string `json:"id"`
	FilesFound   uint64 `json:"filesFound"`
	DirsFound    uint64 `json:"dirsFound"`
	BytesFound   uint64 `json:"bytesFound"`
	ItemsSkipped uint64 `json:"itemsSkipped"`
}

// ScanComplete is the payload of scan-complete events.
type ScanComplete struct {
	ID           string `json:"id"`
	FilesTotal   uint64 `json:"filesTotal"`
	DirsTotal    uint64 `json:"dirsTotal"`
	BytesTotal   uint64 `json:"bytesTotal"`
	ItemsSkipped uint64 `json:"itemsSkipped"`
}

// ScanError is the payload of scan-error events.
type ScanError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ScanCancelled is the payload of scan-cancelled events.
type ScanCancelled struct {
	ID string `json:"id"`
}

// TransferProgress is the payload of transfer-progress events.
type TransferProgress struct {
	ID           string `json:"id"`
	Phase        Phase  `json:"phase"`
	CurrentFile  string `json:"currentFile"`
	FilesDone    uint64 `json:"filesDone"`
	FilesTotal   uint64 `json:"filesTotal"`
	BytesDone    uint64 `json:"bytesDone"`
	BytesTotal   uint64 `json:"bytesTotal"`
	ItemsSkipped uint64 `json:"itemsSkipped"`
}

// TransferConflict is the payload of transfer-conflict events, emitted when
// a stop-policy transfer pauses on a destination collision. Error carries
// the destination_exists variant for the colliding path.
type TransferConflict struct {
	ID       string         `json:"id"`
	Conflict ConflictRecord `json:"conflict"`
	Error    *OpError       `json:"error"`
}

// TransferComplete is the payload of transfer-complete events.
type TransferComplete struct {
	ID             string `json:"id"`
	FilesProcessed uint64 `json:"filesProcessed"`
	BytesProcessed uint64 `json:"bytesProcessed"`
	ItemsSkipped   uint64 `json:"itemsSkipped"`
}

// TransferError is the payload of transfer-error events.
type TransferError struct {
	ID    string   `json:"id"`
	Error *OpError `json:"error"`
}

// TransferCancelled is the payload of transfer-cancelled events.
type TransferCancelled struct {
	ID             string `json:"id"`
	FilesProcessed uint64 `json:"filesProcessed"`
	ItemsSkipped   uint64 `json:"itemsSkipped"`
	RolledBack     bool   `json:"rolledBack"`
}
