// Package studio is a self-contained stub of the Studio authoring API.
// It backs local development and the CLI serve command with a SQLite
// block store instead of a full LMS deployment.
package studio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"courseline/internal/outline"
)

// Config for the stub API handler.
type Config struct {
	Store    Store
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"block not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the stub Studio API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Courseline Studio Stub", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerCourses(group, cfg.Store)
	registerItems(group, cfg.Store)
	registerClipboard(group, cfg.Store)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrNoClipboard):
		return newAPIError(http.StatusBadRequest, "clipboard_empty", err.Error(), nil)
	case strings.Contains(strings.ToLower(err.Error()), "invalid"):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func newLocator(category string) string {
	return fmt.Sprintf("block-v1:%s+%s", category, uuid.NewString())
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Status string `json:"status"`
			} `json:"body"`
		}{}
		out.Body.Status = "ok"
		return out, nil
	})
}

func registerCourses(api huma.API, store Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-outline",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/outline",
		Summary:     "Get course outline",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*struct {
		Body outline.OutlineDocument `json:"body"`
	}, error) {
		doc, err := store.BuildOutline(ctx, input.CourseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body outline.OutlineDocument `json:"body"`
		}{Body: doc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "enable-highlights-emails",
		Method:      http.MethodPost,
		Path:        "/courses/{course_id}/highlights-emails",
		Summary:     "Enable weekly highlight emails",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*struct{}, error) {
		if err := store.SetHighlightsEnabled(ctx, input.CourseID, true); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reindex-course",
		Method:      http.MethodPost,
		Path:        "/courses/{course_id}/reindex",
		Summary:     "Rebuild the course search index",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*struct{}, error) {
		// The stub has no search index; existence is all we verify.
		if _, err := store.GetCourse(ctx, input.CourseID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-launch-report",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/launch",
		Summary:     "Get pre-launch readiness report",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*struct {
		Body LaunchReportResponse `json:"body"`
	}, error) {
		checks, selfPaced, err := store.LaunchChecks(ctx, input.CourseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LaunchReportResponse `json:"body"`
		}{Body: LaunchReportResponse{Checks: checks, SelfPaced: selfPaced}}, nil
	})
}

// LaunchReportResponse is the launch endpoint payload.
type LaunchReportResponse struct {
	Checks    []LaunchCheckRow `json:"checks"`
	SelfPaced bool             `json:"selfPaced"`
}

// CreateItemRequest is the item creation payload.
type CreateItemRequest struct {
	ParentLocator string `json:"parent_locator"`
	Category      string `json:"category"`
	DisplayName   string `json:"display_name"`
}

// LocatorResponse carries the locator of a created or copied block.
type LocatorResponse struct {
	Locator string `json:"locator"`
}

func registerItems(api huma.API, store Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-item",
		Method:        http.MethodPost,
		Path:          "/items",
		Summary:       "Create item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateItemRequest `json:"body"`
	}) (*struct {
		Body LocatorResponse `json:"body"`
	}, error) {
		if input.Body.ParentLocator == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "parent_locator is required", nil)
		}
		switch outline.Category(input.Body.Category) {
		case outline.CategoryChapter, outline.CategorySequential, outline.CategoryVertical:
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid category", nil)
		}
		courseID, err := resolveCourse(ctx, store, input.Body.ParentLocator)
		if err != nil {
			return nil, handleError(err)
		}
		locator := newLocator(input.Body.Category)
		if err := store.InsertBlock(ctx, locator, courseID, input.Body.ParentLocator, input.Body.Category, input.Body.DisplayName); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LocatorResponse `json:"body"`
		}{Body: LocatorResponse{Locator: locator}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/items/{locator}",
		Summary:     "Get item subtree",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
	}) (*struct {
		Body outline.Item `json:"body"`
	}, error) {
		it, err := store.BuildItem(ctx, input.Locator)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body outline.Item `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-item",
		Method:      http.MethodDelete,
		Path:        "/items/{locator}",
		Summary:     "Delete item subtree",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
	}) (*struct{}, error) {
		if err := store.DeleteBlock(ctx, input.Locator); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-item",
		Method:      http.MethodPatch,
		Path:        "/items/{locator}",
		Summary:     "Rename or configure item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
		Body    struct {
			DisplayName *string        `json:"display_name,omitempty"`
			Metadata    map[string]any `json:"metadata,omitempty"`
		} `json:"body"`
	}) (*struct{}, error) {
		if input.Body.DisplayName == nil && input.Body.Metadata == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "display_name or metadata is required", nil)
		}
		if input.Body.DisplayName != nil {
			if err := store.RenameBlock(ctx, input.Locator, *input.Body.DisplayName); err != nil {
				return nil, handleError(err)
			}
		}
		if input.Body.Metadata != nil {
			if err := store.ConfigureBlock(ctx, input.Locator, input.Body.Metadata); err != nil {
				return nil, handleError(err)
			}
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "duplicate-item",
		Method:      http.MethodPost,
		Path:        "/items/{locator}/duplicate",
		Summary:     "Duplicate item subtree",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
		Body    struct {
			ParentLocator string `json:"parent_locator"`
		} `json:"body"`
	}) (*struct {
		Body LocatorResponse `json:"body"`
	}, error) {
		src, err := store.getBlock(ctx, input.Locator)
		if err != nil {
			return nil, handleError(err)
		}
		parent := input.Body.ParentLocator
		if parent == "" {
			parent = src.Parent
		}
		copied, err := store.CopyBlockTree(ctx, input.Locator, parent, " (Copy)", func() string {
			return newLocator(src.Category)
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LocatorResponse `json:"body"`
		}{Body: LocatorResponse{Locator: copied}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-item",
		Method:      http.MethodPost,
		Path:        "/items/{locator}/publish",
		Summary:     "Publish item subtree",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
	}) (*struct{}, error) {
		if err := store.PublishBlock(ctx, input.Locator); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-item-order",
		Method:      http.MethodPut,
		Path:        "/items/{locator}/order",
		Summary:     "Reorder children of a container",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
		Body    struct {
			OrderedIDs []string `json:"ordered_ids"`
		} `json:"body"`
	}) (*struct{}, error) {
		if err := store.SetOrder(ctx, input.Locator, input.Body.OrderedIDs); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-item-highlights",
		Method:      http.MethodPut,
		Path:        "/items/{locator}/highlights",
		Summary:     "Replace item highlights",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Locator string `path:"locator"`
		Body    struct {
			Highlights []string `json:"highlights"`
		} `json:"body"`
	}) (*struct{}, error) {
		if err := store.SetHighlights(ctx, input.Locator, input.Body.Highlights); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerClipboard(api huma.API, store Store) {
	huma.Register(api, huma.Operation{
		OperationID: "copy-to-clipboard",
		Method:      http.MethodPost,
		Path:        "/clipboard",
		Summary:     "Stage an item on the clipboard",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			UsageKey string `json:"usage_key"`
		} `json:"body"`
	}) (*struct {
		Body outline.ClipboardContent `json:"body"`
	}, error) {
		if input.Body.UsageKey == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "usage_key is required", nil)
		}
		b, err := store.getBlock(ctx, input.Body.UsageKey)
		if err != nil {
			return nil, handleError(err)
		}
		content := outline.ClipboardContent{
			SourceUsageKey:   b.Locator,
			Category:         outline.Category(b.Category),
			DisplayName:      b.DisplayName,
			SourceCourseID:   b.CourseID,
			ContentTimestamp: store.now().UTC().Format(time.RFC3339),
		}
		if err := store.SetClipboard(ctx, content); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body outline.ClipboardContent `json:"body"`
		}{Body: content}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "paste-clipboard",
		Method:      http.MethodPost,
		Path:        "/clipboard/paste",
		Summary:     "Paste the staged item under a parent",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ParentLocator string `json:"parent_locator"`
		} `json:"body"`
	}) (*struct {
		Body PasteResponse `json:"body"`
	}, error) {
		if input.Body.ParentLocator == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "parent_locator is required", nil)
		}
		content, err := store.GetClipboard(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		src, err := store.getBlock(ctx, content.SourceUsageKey)
		if err != nil {
			return nil, handleError(err)
		}
		copied, err := store.CopyBlockTree(ctx, src.Locator, input.Body.ParentLocator, "", func() string {
			return newLocator(src.Category)
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PasteResponse `json:"body"`
		}{Body: PasteResponse{Locator: copied}}, nil
	})
}

// PasteResponse is the paste endpoint payload.
type PasteResponse struct {
	Locator string              `json:"locator"`
	Notices outline.FileNotices `json:"staticFileNotices"`
}

// resolveCourse finds the owning course of a parent locator, which may
// be a course id itself (for top-level sections) or a block locator.
func resolveCourse(ctx context.Context, store Store, parentLocator string) (string, error) {
	if _, err := store.GetCourse(ctx, parentLocator); err == nil {
		return parentLocator, nil
	}
	b, err := store.getBlock(ctx, parentLocator)
	if err != nil {
		return "", err
	}
	return b.CourseID, nil
}
