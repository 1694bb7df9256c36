package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"courseline/internal/apierr"
	"courseline/internal/outline"
)

// Engine drives the outline store against the remote Studio backend.
// Mutating operations share one envelope: mark the saving channel in
// progress and show a notification, call the backend, then record
// success or the classified failure and hide the notification. The
// store is the only side-effect target; callers read results from it.
type Engine struct {
	Store     *outline.Store
	Gateway   Gateway
	Notifier  Notifier
	Clipboard ClipboardPublisher
	Log       *zap.Logger
	CourseID  string
	Now       func() time.Time

	queue *TaskQueue
}

// New wires an engine for one course. Pass nil for log to discard logs.
func New(courseID string, gw Gateway, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		Store:    outline.NewStore(),
		Gateway:  gw,
		Notifier: NopNotifier{},
		Log:      log,
		CourseID: courseID,
		Now:      time.Now,
		queue:    NewTaskQueue(),
	}
}

// Close stops the publish queue worker.
func (e Engine) Close() {
	e.queue.Close()
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) setChannel(ch outline.Channel, status outline.RequestStatus, details *apierr.Details) {
	e.Store.Apply(outline.ChannelStatusChanged{Channel: ch, Status: status, Err: details})
}

// DismissError clears the surfaced error on one channel. Forbidden
// errors are not dismissible and stay put.
func (e Engine) DismissError(ch outline.Channel) {
	cs := e.Store.Channel(ch)
	if cs.Err != nil && !cs.Err.Dismissible {
		return
	}
	e.Store.Apply(outline.ErrorDismissed{Channel: ch})
}

// withSaving runs one mutation under the saving channel envelope.
func (e Engine) withSaving(ctx context.Context, kind ProcessingKind, op string, fn func(context.Context) error) error {
	e.setChannel(outline.ChannelSaving, outline.RequestInProgress, nil)
	e.Notifier.ShowProcessing(kind)
	defer e.Notifier.Hide()
	if err := fn(ctx); err != nil {
		details := apierr.Classify(err)
		e.setChannel(outline.ChannelSaving, outline.RequestFailed, details)
		e.Log.Error("outline mutation failed",
			zap.String("op", op),
			zap.String("kind", string(details.Kind)),
			zap.Error(err))
		return err
	}
	e.setChannel(outline.ChannelSaving, outline.RequestSuccessful, nil)
	return nil
}
