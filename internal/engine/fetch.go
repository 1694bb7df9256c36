package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"courseline/internal/apierr"
	"courseline/internal/outline"
)

// FetchOutlineIndex loads the whole outline document into the store.
// A 403 parks the channel in the denied status; the caller has no
// access to the course and retrying will not help.
func (e Engine) FetchOutlineIndex(ctx context.Context) error {
	e.setChannel(outline.ChannelOutlineIndex, outline.RequestInProgress, nil)
	doc, err := e.Gateway.OutlineIndex(ctx, e.CourseID)
	if err != nil {
		details := apierr.Classify(err)
		status := outline.RequestFailed
		if details.Kind == apierr.KindForbidden {
			status = outline.RequestDenied
		}
		e.setChannel(outline.ChannelOutlineIndex, status, details)
		e.Log.Error("fetch outline index", zap.String("course", e.CourseID), zap.Error(err))
		return err
	}
	e.Store.Apply(outline.OutlineFetched{Doc: doc})
	e.setChannel(outline.ChannelOutlineIndex, outline.RequestSuccessful, nil)
	return nil
}

// FetchSections refreshes the named top-level sections concurrently.
// Reads have no ordering constraint between each other. When scrollToID
// names an item inside one of the fetched sections, that item is
// flagged for a one-shot scroll.
func (e Engine) FetchSections(ctx context.Context, sectionIDs []string, scrollToID string) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	e.setChannel(outline.ChannelSectionLoad, outline.RequestInProgress, nil)
	var mu sync.Mutex
	fetched := make(map[string]outline.Item, len(sectionIDs))
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range sectionIDs {
		id := id
		g.Go(func() error {
			it, err := e.Gateway.Item(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch section %s: %w", id, err)
			}
			if scrollToID != "" {
				markScroll(&it, scrollToID)
			}
			mu.Lock()
			fetched[it.ID] = it
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.setChannel(outline.ChannelSectionLoad, outline.RequestFailed, apierr.Classify(err))
		e.Log.Error("fetch sections", zap.Strings("sections", sectionIDs), zap.Error(err))
		return err
	}
	e.Store.Apply(outline.SectionsUpdated{Sections: fetched})
	e.setChannel(outline.ChannelSectionLoad, outline.RequestSuccessful, nil)
	return nil
}

// refreshSection reloads one section after a mutation that touched it.
func (e Engine) refreshSection(ctx context.Context, sectionID, scrollToID string) error {
	it, err := e.Gateway.Item(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("refresh section %s: %w", sectionID, err)
	}
	if scrollToID != "" {
		markScroll(&it, scrollToID)
	}
	e.Store.Apply(outline.SectionsUpdated{Sections: map[string]outline.Item{it.ID: it}})
	return nil
}

func markScroll(it *outline.Item, id string) {
	if it.ID == id {
		it.ShouldScroll = true
		return
	}
	for i := range it.Children {
		markScroll(&it.Children[i], id)
	}
}

// FetchCourseLaunch loads the pre-launch readiness report and folds its
// counters into the status bar checklist.
func (e Engine) FetchCourseLaunch(ctx context.Context) (LaunchReport, error) {
	e.setChannel(outline.ChannelCourseLaunch, outline.RequestInProgress, nil)
	report, err := e.Gateway.CourseLaunch(ctx, e.CourseID)
	if err != nil {
		e.setChannel(outline.ChannelCourseLaunch, outline.RequestFailed, apierr.Classify(err))
		e.Log.Error("fetch course launch", zap.String("course", e.CourseID), zap.Error(err))
		return LaunchReport{}, err
	}
	passed := 0
	for _, c := range report.Checks {
		if c.Passed {
			passed++
		}
	}
	e.Store.Apply(outline.ChecklistUpdated{Checklist: outline.Checklist{
		TotalCourseLaunchChecks:     len(report.Checks),
		CompletedCourseLaunchChecks: passed,
	}})
	e.Store.Apply(outline.SelfPacedUpdated{SelfPaced: report.SelfPaced})
	e.setChannel(outline.ChannelCourseLaunch, outline.RequestSuccessful, nil)
	return report, nil
}

// Reindex asks the backend to rebuild the course search index.
func (e Engine) Reindex(ctx context.Context) error {
	e.setChannel(outline.ChannelReindex, outline.RequestInProgress, nil)
	if err := e.Gateway.Reindex(ctx, e.CourseID); err != nil {
		e.setChannel(outline.ChannelReindex, outline.RequestFailed, apierr.Classify(err))
		e.Log.Error("reindex", zap.String("course", e.CourseID), zap.Error(err))
		return err
	}
	e.setChannel(outline.ChannelReindex, outline.RequestSuccessful, nil)
	return nil
}
