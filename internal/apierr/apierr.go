package apierr

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// Kind buckets a remote-call failure for presentation purposes.
type Kind string

const (
	// KindForbidden is an HTTP 403. Surfaced persistently; not dismissible.
	KindForbidden Kind = "forbidden"
	// KindServerError is any other HTTP error response with a body.
	KindServerError Kind = "server_error"
	// KindNetworkError means the request was sent but no response arrived.
	KindNetworkError Kind = "network_error"
	// KindUnknown is everything else; the raw message is captured.
	KindUnknown Kind = "unknown"
)

// Details is the normalized error payload attached to a failed channel.
type Details struct {
	Kind        Kind   `json:"kind"`
	Dismissible bool   `json:"dismissible"`
	Status      int    `json:"status,omitempty"`
	Data        string `json:"data,omitempty"`
}

// HTTPError is implemented by client errors that carry a response.
// The SDK client's APIError satisfies it.
type HTTPError interface {
	error
	HTTPStatus() int
	ResponseBody() string
	ResponseContentType() string
}

// Classify normalizes an error from a remote call into Details.
//
// HTTP 403 maps to a non-dismissible forbidden error. Any other HTTP
// response maps to a server error; the body is captured unless the
// response is an HTML error page, which we detect via the Content-Type
// header rather than sniffing the body. Transport-level failures map to
// a network error, and anything else is unknown with the raw message.
func Classify(err error) *Details {
	if err == nil {
		return nil
	}
	var he HTTPError
	if errors.As(err, &he) {
		if he.HTTPStatus() == 403 {
			return &Details{Kind: KindForbidden, Dismissible: false, Status: 403}
		}
		d := &Details{Kind: KindServerError, Dismissible: true, Status: he.HTTPStatus()}
		if !isHTML(he.ResponseContentType()) {
			d.Data = he.ResponseBody()
		}
		return d
	}
	if isNetwork(err) {
		return &Details{Kind: KindNetworkError, Dismissible: true}
	}
	return &Details{Kind: KindUnknown, Dismissible: true, Data: err.Error()}
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func isNetwork(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
