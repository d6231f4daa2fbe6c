// Package apitest provides typed test helpers for handlers built with graceful.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/graceful"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client serving h.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a decoded response. Problem is set instead of Body when the
// server answered with application/problem+json.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Problem *graceful.ProblemDetail
}

// Get sends a GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func Post[Resp any](t testing.TB, c *Client, path string, body any) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body)
}

// Patch sends a PATCH request with a JSON body.
func Patch[Resp any](t testing.TB, c *Client, path string, body any) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body)
}

// Put sends a PUT request with a JSON body.
func Put[Resp any](t testing.TB, c *Client, path string, body any) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body)
}

// Delete sends a DELETE request.
func Delete(t testing.TB, c *Client, path string) *Response[struct{}] {
	t.Helper()
	return do[struct{}](t, c, http.MethodDelete, path, nil)
}

// Options requests the resource description.
func Options(t testing.TB, c *Client, path string) *Response[map[string]any] {
	t.Helper()
	return do[map[string]any](t, c, http.MethodOptions, path, nil)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
	}

	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return result
	}

	if resp.Header.Get("Content-Type") == "application/problem+json" {
		var pd graceful.ProblemDetail
		if decErr := json.NewDecoder(resp.Body).Decode(&pd); decErr != nil {
			t.Fatalf("apitest: decode problem: %v", decErr)
		}
		result.Problem = &pd
		return result
	}

	var decoded Resp
	if decErr := json.NewDecoder(resp.Body).Decode(&decoded); decErr != nil && !errors.Is(decErr, io.EOF) {
		t.Fatalf("apitest: decode body: %v", decErr)
	}
	result.Body = &decoded
	return result
}
