package engine

// ProcessingKind names the progress notification shown while a
// mutation is in flight.
type ProcessingKind string

const (
	ProcessingSaving      ProcessingKind = "saving"
	ProcessingDeleting    ProcessingKind = "deleting"
	ProcessingDuplicating ProcessingKind = "duplicating"
	ProcessingPasting     ProcessingKind = "pasting"
	ProcessingCopying     ProcessingKind = "copying"
	ProcessingMoving      ProcessingKind = "moving"
	ProcessingUndoMoving  ProcessingKind = "undo-moving"
)

// Notifier surfaces operation progress to the user interface. Show and
// Hide bracket every mutation, including failed ones.
type Notifier interface {
	ShowProcessing(kind ProcessingKind)
	Hide()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ShowProcessing(ProcessingKind) {}
func (NopNotifier) Hide()                         {}
