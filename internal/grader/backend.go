package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Backend performs one blocking call to an LLM service and returns the text
// the model produced. Implementations hold only configuration fixed at
// construction and are safe for concurrent use.
type Backend interface {
	Name() string
	Call(ctx context.Context, prompt Prompt) (string, error)
}

// DefaultTimeout bounds a single backend call when no client is supplied.
const DefaultTimeout = 120 * time.Second

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 4 << 20

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends exactly one POST with a JSON body and returns the response
// body of a 2xx reply. Every failure is a transport *GradeError; a non-2xx
// body is kept on the error.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload any, header http.Header) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, transportError("failed to marshal request", nil, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, transportError("failed to create request", nil, redactURLError(err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError("LLM request failed", nil, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, transportError("failed to read LLM response", nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError(fmt.Sprintf("LLM returned status %d", resp.StatusCode), body, nil)
	}
	return body, nil
}

// redactURLError drops the query string and user info from the URL carried
// by a *url.Error. Credentials passed as query parameters (Gemini's ?key=)
// must not reach feedback text or logs.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redactURL(uerr.URL), Err: uerr.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted url]"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
