package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"courseline/internal/apierr"
	"courseline/internal/outline"
)

// reorder runs one move under the saving envelope. The view applies
// moves optimistically, so on failure restore is invoked to put the
// tree back exactly as it was before the gesture.
func (e Engine) reorder(ctx context.Context, op string, fn func(context.Context) error, restore func()) error {
	e.setChannel(outline.ChannelSaving, outline.RequestInProgress, nil)
	e.Notifier.ShowProcessing(ProcessingMoving)
	defer e.Notifier.Hide()
	if err := fn(ctx); err != nil {
		if restore != nil {
			e.Notifier.ShowProcessing(ProcessingUndoMoving)
			restore()
		}
		details := apierr.Classify(err)
		e.setChannel(outline.ChannelSaving, outline.RequestFailed, details)
		e.Log.Error("reorder failed", zap.String("op", op), zap.Error(err))
		return err
	}
	e.setChannel(outline.ChannelSaving, outline.RequestSuccessful, nil)
	return nil
}

// ReorderSections persists a new top-level section order.
func (e Engine) ReorderSections(ctx context.Context, orderedIDs []string, restore func()) error {
	return e.reorder(ctx, "reorder sections", func(ctx context.Context) error {
		if err := e.Gateway.SetOrder(ctx, e.CourseID, orderedIDs); err != nil {
			return fmt.Errorf("reorder sections: %w", err)
		}
		e.Store.Apply(outline.SectionsReordered{OrderedIDs: orderedIDs})
		return nil
	}, restore)
}

// ReorderSubsections persists the subsection order of one section.
// When the gesture pulled a subsection out of another section,
// prevSectionID names it and both sections are refetched so the tree
// matches the backend again.
func (e Engine) ReorderSubsections(ctx context.Context, sectionID, prevSectionID string, orderedIDs []string, restore func()) error {
	return e.reorder(ctx, "reorder subsections", func(ctx context.Context) error {
		if err := e.Gateway.SetOrder(ctx, sectionID, orderedIDs); err != nil {
			return fmt.Errorf("reorder subsections of %s: %w", sectionID, err)
		}
		return e.refetchMoved(ctx, sectionID, prevSectionID)
	}, restore)
}

// ReorderUnits persists the unit order of one subsection, with the
// same cross-section refetch contract as ReorderSubsections.
func (e Engine) ReorderUnits(ctx context.Context, sectionID, prevSectionID, subsectionID string, orderedIDs []string, restore func()) error {
	return e.reorder(ctx, "reorder units", func(ctx context.Context) error {
		if err := e.Gateway.SetOrder(ctx, subsectionID, orderedIDs); err != nil {
			return fmt.Errorf("reorder units of %s: %w", subsectionID, err)
		}
		return e.refetchMoved(ctx, sectionID, prevSectionID)
	}, restore)
}

func (e Engine) refetchMoved(ctx context.Context, sectionID, prevSectionID string) error {
	if err := e.refreshSection(ctx, sectionID, ""); err != nil {
		return err
	}
	if prevSectionID != "" && prevSectionID != sectionID {
		return e.refreshSection(ctx, prevSectionID, "")
	}
	return nil
}
