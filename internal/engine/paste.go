package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courseline/internal/outline"
)

// CopyToClipboard stages an item on the backend clipboard, records the
// content locally and broadcasts it to other processes. A broadcast
// failure is logged, not returned: the local copy already succeeded.
func (e Engine) CopyToClipboard(ctx context.Context, itemID string) error {
	return e.withSaving(ctx, ProcessingCopying, "copy to clipboard", func(ctx context.Context) error {
		content, err := e.Gateway.CopyToClipboard(ctx, itemID)
		if err != nil {
			return fmt.Errorf("copy %s: %w", itemID, err)
		}
		if content.ContentTimestamp == "" {
			content.ContentTimestamp = e.now().UTC().Format(time.RFC3339)
		}
		e.Store.Apply(outline.ClipboardUpdated{Content: content})
		if e.Clipboard != nil {
			if err := e.Clipboard.Publish(ctx, content); err != nil {
				e.Log.Warn("clipboard broadcast failed", zap.Error(err))
			}
		}
		return nil
	})
}

// HandleClipboardUpdate records clipboard content that arrived from
// another process via the broadcaster.
func (e Engine) HandleClipboardUpdate(content outline.ClipboardContent) {
	e.Store.Apply(outline.ClipboardUpdated{Content: content})
}

// PasteSection pastes the clipboard as a new top-level section and
// returns the notice id, if static-file notices were produced.
func (e Engine) PasteSection(ctx context.Context) (string, error) {
	var noticeID string
	err := e.withSaving(ctx, ProcessingPasting, "paste section", func(ctx context.Context) error {
		res, err := e.Gateway.PasteItem(ctx, e.CourseID)
		if err != nil {
			return fmt.Errorf("paste under %s: %w", e.CourseID, err)
		}
		it, err := e.Gateway.Item(ctx, res.Locator)
		if err != nil {
			return fmt.Errorf("fetch pasted section %s: %w", res.Locator, err)
		}
		it.ShouldScroll = true
		e.Store.Apply(outline.SectionAdded{Item: it})
		noticeID = e.recordPasteNotices(res.Notices)
		return nil
	})
	return noticeID, err
}

// PasteInto pastes the clipboard under parentLocator inside the given
// section, refreshing the section so the pasted item shows up.
func (e Engine) PasteInto(ctx context.Context, sectionID, parentLocator string) (string, error) {
	var noticeID string
	err := e.withSaving(ctx, ProcessingPasting, "paste item", func(ctx context.Context) error {
		res, err := e.Gateway.PasteItem(ctx, parentLocator)
		if err != nil {
			return fmt.Errorf("paste under %s: %w", parentLocator, err)
		}
		if err := e.refreshSection(ctx, sectionID, res.Locator); err != nil {
			return err
		}
		noticeID = e.recordPasteNotices(res.Notices)
		return nil
	})
	return noticeID, err
}

func (e Engine) recordPasteNotices(n outline.FileNotices) string {
	if n.Empty() {
		return ""
	}
	id := uuid.NewString()
	e.Store.Apply(outline.PasteNoticesAdded{ID: id, Notices: n})
	return id
}

// DismissPasteNotices drops the notices with the given ids.
func (e Engine) DismissPasteNotices(ids ...string) {
	if len(ids) == 0 {
		return
	}
	e.Store.Apply(outline.PasteNoticesRemoved{IDs: ids})
}
