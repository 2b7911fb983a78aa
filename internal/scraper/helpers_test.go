package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}, nil
}

func testClient(rt roundTripFunc) *Client {
	return NewClient(ClientOptions{
		Name:       "test",
		Transport:  rt,
		RetryDelay: time.Millisecond,
	})
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func decodeGraphQL(t *testing.T, req *http.Request) gqlRequest {
	t.Helper()
	var body gqlRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		t.Errorf("decode graphql request: %v", err)
	}
	return body
}

// page pads an HTML fixture past the blocked-page threshold.
func page(head, body string) string {
	return "<!DOCTYPE html><html><head>" + head + "</head><body>" + body +
		"<footer>" + strings.Repeat("<p>filler</p>", 60) + "</footer></body></html>"
}
