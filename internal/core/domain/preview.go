package domain

type DiffKind string

const (
	DiffAdd       DiffKind = "ADD"
	DiffUpdate    DiffKind = "UPDATE"
	DiffUnchanged DiffKind = "UNCHANGED"
	DiffConflict  DiffKind = "CONFLICT"
)

// PreviewRow - классификация одной строки в режиме dry-run.
// Current/Incoming - ParsedDuAnData/ParsedLayoutData или Project/Layout, в зависимости от направления.
type PreviewRow struct {
	RowIndex int      `json:"row_index"`
	Tab      string   `json:"tab"`
	Key      string   `json:"key"`
	DiffKind DiffKind `json:"diff_kind"`
	Current  any      `json:"current,omitempty"`
	Incoming any      `json:"incoming"`
}

type PreviewResult struct {
	Direction SyncDirection    `json:"direction"`
	Rows      []PreviewRow     `json:"rows"`
	Summary   map[DiffKind]int `json:"summary"`
	Errors    []SyncError      `json:"errors"`
	Log       *SyncLogEntry    `json:"log"`
}

// ClassifyDiff сравнивает отпечатки входящей и текущей версии с отпечатком последней синхронизации.
// CONFLICT - только если известна последняя синхронизация и обе стороны ушли от нее.
func ClassifyDiff(hasCurrent bool, currentHash, incomingHash, lastSyncedHash string) DiffKind {
	switch {
	case !hasCurrent:
		return DiffAdd
	case currentHash == incomingHash:
		return DiffUnchanged
	case lastSyncedHash != "" && currentHash != lastSyncedHash && incomingHash != lastSyncedHash:
		return DiffConflict
	default:
		return DiffUpdate
	}
}

// NewPreviewSummary - пустые счетчики по всем видам
func NewPreviewSummary() map[DiffKind]int {
	return map[DiffKind]int{DiffAdd: 0, DiffUpdate: 0, DiffUnchanged: 0, DiffConflict: 0}
}
