// Package flink is a client for the Flink cluster manager REST API.
//
// Every endpoint goes through one Executor round trip: build the URL, send the
// request, compare the status code with the expected one and hand back the
// JSON body untouched. Long-running server operations (savepoints, stop,
// rescaling, dataset deletion) return a Trigger that re-reads the operation
// status on demand.
//
// A Client holds no mutable state after New, so it may be shared between
// goroutines as long as the underlying *http.Client is (the default one is).
package flink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent = "flinkrest"

	// JarContentType is the media type used for archive uploads.
	JarContentType = "application/x-java-archive"
)

// Request describes one outbound call.
type Request struct {
	URL    string     // absolute URL
	Method string     // default: GET
	Query  url.Values // optional query parameters
	JSON   any        // optional JSON body
	Upload *FileUpload
	Expect int // expected status code (default: 200)
}

// FileUpload is a multipart file part. Requests carrying one are always POSTs
// and never have a JSON body.
type FileUpload struct {
	Field       string // default: file
	Filename    string
	ContentType string // default: application/x-java-archive
	Content     io.Reader
}

// MetricsRecorder is an optional interface for recording request metrics.
type MetricsRecorder interface {
	RecordRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64)
	RecordRequestError(ctx context.Context, method, path string)
	RecordTriggerPoll(ctx context.Context, kind, state string)
}

// Executor performs single HTTP round trips against a cluster.
type Executor struct {
	client  *http.Client
	target  Target
	base    string
	logger  *slog.Logger
	metrics MetricsRecorder
}

func newExecutor(target Target, client *http.Client, logger *slog.Logger, metrics MetricsRecorder) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client:  client,
		target:  target,
		base:    target.BaseURL(),
		logger:  logger.With("component", "flink"),
		metrics: metrics,
	}
}

// URL joins path onto the API root.
func (e *Executor) URL(path string) string {
	return e.base + path
}

// Do issues req and returns the response body when the status matches.
// An empty body yields a nil message.
func (e *Executor) Do(ctx context.Context, req *Request) (json.RawMessage, error) {
	body, err := e.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON", req.URL)
	}
	return json.RawMessage(body), nil
}

// DoInto issues req and decodes the response body into out.
func (e *Executor) DoInto(ctx context.Context, req *Request, out any) error {
	body, err := e.Do(ctx, req)
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL, err)
	}
	return nil
}

// DoText issues req and returns the raw body as text.
func (e *Executor) DoText(ctx context.Context, req *Request) (string, error) {
	body, err := e.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (e *Executor) roundTrip(ctx context.Context, req *Request) ([]byte, error) {
	httpReq, err := e.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	expect := req.Expect
	if expect == 0 {
		expect = http.StatusOK
	}

	logger := e.logger.With("method", httpReq.Method, "url", req.URL)
	start := time.Now()

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordRequestError(ctx, httpReq.Method, httpReq.URL.Path)
		}
		logger.Debug("Request failed", "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordRequest(ctx, httpReq.Method, httpReq.URL.Path, resp.StatusCode, duration.Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("Request completed", "status", resp.StatusCode, "expected", expect, "duration", duration)

	if resp.StatusCode != expect {
		return nil, statusError(resp.StatusCode, serverErrors(body))
	}
	return body, nil
}

func (e *Executor) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Upload != nil && req.JSON != nil:
		return nil, validationError("json", "a file upload cannot carry a JSON body")
	case req.Upload != nil:
		method = http.MethodPost
		buf, ct, err := encodeUpload(req.Upload)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	e.applyAuth(httpReq)
	return httpReq, nil
}

func (e *Executor) applyAuth(req *http.Request) {
	switch {
	case e.target.Token != "":
		req.Header.Set("Authorization", "Bearer "+e.target.Token)
	case e.target.Username != "" || e.target.Password != "":
		req.SetBasicAuth(e.target.Username, e.target.Password)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload buffers the multipart body so the request has a known length.
func encodeUpload(up *FileUpload) (*bytes.Buffer, string, error) {
	if up.Content == nil {
		return nil, "", validationError("file", "upload content is required")
	}
	field := up.Field
	if field == "" {
		field = "file"
	}
	ct := up.ContentType
	if ct == "" {
		ct = JarContentType
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(up.Filename)))
	header.Set("Content-Type", ct)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return nil, "", fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

// serverErrors extracts the "errors" list of a failed response. Bodies that
// are not JSON, or carry no such list, yield nil.
func serverErrors(body []byte) []string {
	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Errors
}

// DoField issues req and decodes a single top-level field of the response
// object into out. A missing field is an ErrConvention failure.
func (e *Executor) DoField(ctx context.Context, req *Request, field string, out any) error {
	body, err := e.Do(ctx, req)
	if err != nil {
		return err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return conventionError(req.URL, "response is not a JSON object", body)
	}
	raw, ok := obj[field]
	if !ok {
		return conventionError(req.URL, fmt.Sprintf("response has no %q field", field), body)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %q from %s: %w", field, req.URL, err)
	}
	return nil
}

// object decodes a JSON object response; an empty body yields an empty map.
func (e *Executor) object(ctx context.Context, req *Request) (map[string]any, error) {
	out := map[string]any{}
	if err := e.DoInto(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
