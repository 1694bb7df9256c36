// Package frame decodes messages posted by the embedded legacy content
// frame. The wire format is a JSON envelope {"type": ..., "payload": ...};
// every known type maps to exactly one Message variant and everything
// else is rejected at the boundary.
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned by Decode for a type it does not know.
var ErrUnknownMessage = errors.New("unknown frame message type")

// Message is the closed set of frame messages. Callers switch on the
// concrete type; the unexported marker keeps the union sealed.
type Message interface {
	isFrameMessage()
}

// DeleteItemRequested asks the host to delete an item.
type DeleteItemRequested struct {
	Locator string
}

// DuplicateItemRequested asks the host to duplicate an item.
type DuplicateItemRequested struct {
	Locator string
}

// EditItemRequested asks the host to open the editor for an item.
type EditItemRequested struct {
	Locator string
}

// ManageAccessRequested asks the host to open the access dialog.
type ManageAccessRequested struct {
	Locator string
}

// HeightUpdated reports the frame's rendered content height in pixels.
type HeightUpdated struct {
	Height int
}

// ScrollRequested asks the host to scroll an item into view.
type ScrollRequested struct {
	Locator string
}

// ErrorReported carries an error raised inside the frame.
type ErrorReported struct {
	Title   string
	Message string
}

func (DeleteItemRequested) isFrameMessage()    {}
func (DuplicateItemRequested) isFrameMessage() {}
func (EditItemRequested) isFrameMessage()      {}
func (ManageAccessRequested) isFrameMessage()  {}
func (HeightUpdated) isFrameMessage()          {}
func (ScrollRequested) isFrameMessage()        {}
func (ErrorReported) isFrameMessage()          {}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type locatorPayload struct {
	ID string `json:"id"`
}

// Decode parses one raw frame message. It is the only place raw frame
// input is interpreted; past this point the message is typed.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}
	switch env.Type {
	case "deleteXBlock":
		p, err := decodeLocator(env.Payload)
		if err != nil {
			return nil, err
		}
		return DeleteItemRequested{Locator: p}, nil
	case "duplicateXBlock":
		p, err := decodeLocator(env.Payload)
		if err != nil {
			return nil, err
		}
		return DuplicateItemRequested{Locator: p}, nil
	case "editXBlock":
		p, err := decodeLocator(env.Payload)
		if err != nil {
			return nil, err
		}
		return EditItemRequested{Locator: p}, nil
	case "manageXBlockAccess":
		p, err := decodeLocator(env.Payload)
		if err != nil {
			return nil, err
		}
		return ManageAccessRequested{Locator: p}, nil
	case "updateHeight":
		var p struct {
			Height int `json:"height"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode height payload: %w", err)
		}
		return HeightUpdated{Height: p.Height}, nil
	case "scrollToXBlock":
		p, err := decodeLocator(env.Payload)
		if err != nil {
			return nil, err
		}
		return ScrollRequested{Locator: p}, nil
	case "error":
		var p struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode error payload: %w", err)
		}
		return ErrorReported{Title: p.Title, Message: p.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeLocator(raw json.RawMessage) (string, error) {
	var p locatorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("decode locator payload: %w", err)
	}
	if p.ID == "" {
		return "", errors.New("frame message missing item id")
	}
	return p.ID, nil
}
