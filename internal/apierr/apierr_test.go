package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

type fakeHTTPError struct {
	status      int
	body        string
	contentType string
}

func (e *fakeHTTPError) Error() string               { return fmt.Sprintf("api error %d", e.status) }
func (e *fakeHTTPError) HTTPStatus() int             { return e.status }
func (e *fakeHTTPError) ResponseBody() string        { return e.body }
func (e *fakeHTTPError) ResponseContentType() string { return e.contentType }

func TestClassifyForbidden(t *testing.T) {
	d := Classify(&fakeHTTPError{status: 403, body: `{"detail":"nope"}`, contentType: "application/json"})
	if d.Kind != KindForbidden {
		t.Fatalf("kind: %q", d.Kind)
	}
	if d.Dismissible {
		t.Fatalf("forbidden errors must not be dismissible")
	}
	if d.Status != 403 {
		t.Fatalf("status: %d", d.Status)
	}
}

func TestClassifyServerErrorCapturesBody(t *testing.T) {
	d := Classify(&fakeHTTPError{status: 500, body: `{"error":"boom"}`, contentType: "application/json"})
	if d.Kind != KindServerError || !d.Dismissible {
		t.Fatalf("details: %+v", d)
	}
	if d.Data != `{"error":"boom"}` {
		t.Fatalf("body not captured: %q", d.Data)
	}
}

func TestClassifyServerErrorDropsHTMLBody(t *testing.T) {
	d := Classify(&fakeHTTPError{status: 502, body: "<html><body>bad gateway</body></html>", contentType: "text/html; charset=utf-8"})
	if d.Kind != KindServerError {
		t.Fatalf("kind: %q", d.Kind)
	}
	if d.Data != "" {
		t.Fatalf("html error page leaked into details: %q", d.Data)
	}
}

func TestClassifyWrappedHTTPError(t *testing.T) {
	err := fmt.Errorf("publish item: %w", &fakeHTTPError{status: 409, contentType: "application/json"})
	d := Classify(err)
	if d.Kind != KindServerError || d.Status != 409 {
		t.Fatalf("wrapped error not unwrapped: %+v", d)
	}
}

func TestClassifyNetwork(t *testing.T) {
	cases := []error{
		&url.Error{Op: "Post", URL: "http://studio.local/xblock", Err: errors.New("connection refused")},
		context.DeadlineExceeded,
		fmt.Errorf("fetch outline: %w", context.Canceled),
	}
	for _, err := range cases {
		if d := Classify(err); d.Kind != KindNetworkError {
			t.Fatalf("%v classified as %q", err, d.Kind)
		}
	}
}

func TestClassifyUnknown(t *testing.T) {
	d := Classify(errors.New("something odd"))
	if d.Kind != KindUnknown || !d.Dismissible {
		t.Fatalf("details: %+v", d)
	}
	if d.Data != "something odd" {
		t.Fatalf("message not captured: %q", d.Data)
	}
}

func TestClassifyNil(t *testing.T) {
	if d := Classify(nil); d != nil {
		t.Fatalf("nil error produced details: %+v", d)
	}
}
