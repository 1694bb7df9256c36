package engine

import (
	"context"

	"courseline/internal/outline"
)

// Gateway is the remote Studio collaborator. sdk/go implements it over
// HTTP; tests substitute a fake.
type Gateway interface {
	OutlineIndex(ctx context.Context, courseID string) (outline.OutlineDocument, error)
	Item(ctx context.Context, locator string) (outline.Item, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (string, error)
	DeleteItem(ctx context.Context, locator string) error
	DuplicateItem(ctx context.Context, locator, parentLocator string) (string, error)
	PublishItem(ctx context.Context, locator string) error
	ConfigureItem(ctx context.Context, locator string, metadata map[string]any) error
	EditDisplayName(ctx context.Context, locator, displayName string) error
	SetOrder(ctx context.Context, parentLocator string, orderedIDs []string) error
	PasteItem(ctx context.Context, parentLocator string) (PasteResult, error)
	CopyToClipboard(ctx context.Context, locator string) (outline.ClipboardContent, error)
	UpdateHighlights(ctx context.Context, locator string, highlights []string) error
	EnableHighlightsEmails(ctx context.Context, courseID string) error
	Reindex(ctx context.Context, courseID string) error
	CourseLaunch(ctx context.Context, courseID string) (LaunchReport, error)
}

// CreateItemRequest are the parameters for creating one outline item.
type CreateItemRequest struct {
	ParentLocator string
	Category      outline.Category
	DisplayName   string
}

// PasteResult is what the backend reports after a successful paste.
type PasteResult struct {
	Locator string
	Notices outline.FileNotices
}

// LaunchCheck is one readiness check from the course launch report.
type LaunchCheck struct {
	Name   string
	Passed bool
}

// LaunchReport is the backend's pre-launch readiness summary.
type LaunchReport struct {
	Checks    []LaunchCheck
	SelfPaced bool
}

// ClipboardPublisher broadcasts clipboard updates to other processes.
// The clipboard service satisfies it; a nil publisher disables
// broadcasting.
type ClipboardPublisher interface {
	Publish(ctx context.Context, content outline.ClipboardContent) error
}
