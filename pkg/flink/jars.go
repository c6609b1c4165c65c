package flink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// UploadStatusSuccess is the status of an accepted jar upload.
const UploadStatusSuccess = "success"

// JarsClient covers /jars.
type JarsClient struct {
	exec   *Executor
	prefix string
}

// Prefix returns the facet's URL prefix.
func (j *JarsClient) Prefix() string {
	return j.prefix
}

// UploadResult is the response of a jar upload.
type UploadResult struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// JarID returns the id the server assigned to the upload: the last path
// segment of Filename.
func (r *UploadResult) JarID() string {
	return baseName(r.Filename)
}

// RunOptions are the optional parameters of Run. Zero values are omitted
// from the request.
type RunOptions struct {
	// Arguments become "--key value" program arguments, sorted by key.
	Arguments map[string]string
	// ProgramArgs is sent verbatim and takes precedence over Arguments.
	ProgramArgs string

	EntryClass            string
	Parallelism           *int
	SavepointPath         string
	AllowNonRestoredState *bool
}

func (o RunOptions) payload() (map[string]any, error) {
	data := map[string]any{}
	if len(o.Arguments) > 0 {
		keys := make([]string, 0, len(o.Arguments))
		for k := range o.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]string, 0, len(keys))
		for _, k := range keys {
			args = append(args, fmt.Sprintf("--%s %s", k, o.Arguments[k]))
		}
		data["programArgs"] = strings.Join(args, " ")
	}
	if o.ProgramArgs != "" {
		data["programArgs"] = o.ProgramArgs
	}
	if o.EntryClass != "" {
		data["entryClass"] = o.EntryClass
	}
	if o.Parallelism != nil {
		if *o.Parallelism < 0 {
			return nil, validationError("parallelism", "parallelism must be a positive integer")
		}
		data["parallelism"] = *o.Parallelism
	}
	if o.SavepointPath != "" {
		data["savepointPath"] = o.SavepointPath
	}
	if o.AllowNonRestoredState != nil {
		data["allowNonRestoredState"] = *o.AllowNonRestoredState
	}
	return data, nil
}

// All lists the uploaded jars.
//
// Endpoint: GET /jars
func (j *JarsClient) All(ctx context.Context) (map[string]any, error) {
	return j.exec.object(ctx, &Request{URL: j.prefix})
}

// IDs lists the ids of the uploaded jars.
func (j *JarsClient) IDs(ctx context.Context) ([]string, error) {
	var files []struct {
		ID string `json:"id"`
	}
	if err := j.exec.DoField(ctx, &Request{URL: j.prefix}, "files", &files); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// Upload sends the jar at path. The server keeps the file's base name.
//
// Endpoint: POST /jars/upload
func (j *JarsClient) Upload(ctx context.Context, path string) (*UploadResult, error) {
	raw, err := j.uploadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeUpload(raw)
}

// UploadReader sends the jar read from r under filename.
//
// Endpoint: POST /jars/upload
func (j *JarsClient) UploadReader(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	raw, err := j.upload(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return decodeUpload(raw)
}

func (j *JarsClient) uploadFile(ctx context.Context, path string) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar: %w", err)
	}
	defer f.Close()
	return j.upload(ctx, filepath.Base(path), f)
}

func (j *JarsClient) upload(ctx context.Context, filename string, r io.Reader) (json.RawMessage, error) {
	return j.exec.Do(ctx, &Request{
		URL: j.prefix + "/upload",
		Upload: &FileUpload{
			Field:       "file",
			Filename:    filename,
			ContentType: JarContentType,
			Content:     r,
		},
	})
}

func decodeUpload(raw json.RawMessage) (*UploadResult, error) {
	var out UploadResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode upload result: %w", err)
		}
	}
	return &out, nil
}

// Plan returns the dataflow plan of a jar.
//
// Endpoint: POST /jars/:jarid/plan
func (j *JarsClient) Plan(ctx context.Context, jarID string) (map[string]any, error) {
	var out map[string]any
	req := &Request{URL: j.prefix + "/" + jarID + "/plan", Method: http.MethodPost}
	if err := j.exec.DoField(ctx, req, "plan", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run submits a job from an uploaded jar and returns the job id.
//
// Endpoint: POST /jars/:jarid/run
func (j *JarsClient) Run(ctx context.Context, jarID string, opts RunOptions) (string, error) {
	data, err := opts.payload()
	if err != nil {
		return "", err
	}
	var jobID string
	req := &Request{URL: j.prefix + "/" + jarID + "/run", Method: http.MethodPost, JSON: data}
	if err := j.exec.DoField(ctx, req, "jobid", &jobID); err != nil {
		return "", err
	}
	return jobID, nil
}

// UploadAndRun uploads the jar at path and runs it. An upload whose status is
// not "success" fails with ErrConvention and the raw upload response.
func (j *JarsClient) UploadAndRun(ctx context.Context, path string, opts RunOptions) (string, error) {
	if _, err := opts.payload(); err != nil {
		return "", err
	}
	raw, err := j.uploadFile(ctx, path)
	if err != nil {
		return "", err
	}
	result, err := decodeUpload(raw)
	if err != nil {
		return "", err
	}
	if result.Status != UploadStatusSuccess {
		return "", conventionError("jars.uploadAndRun", "Could not upload the input jar file.", raw)
	}
	return j.Run(ctx, result.JarID(), opts)
}

// Delete removes an uploaded jar.
//
// Endpoint: DELETE /jars/:jarid
func (j *JarsClient) Delete(ctx context.Context, jarID string) (Outcome, error) {
	body, err := j.exec.Do(ctx, &Request{URL: j.prefix + "/" + jarID, Method: http.MethodDelete})
	if err != nil {
		return Failure, err
	}
	return OutcomeFromBody(body), nil
}

// DeleteAll removes every uploaded jar, stopping at the first failure.
func (j *JarsClient) DeleteAll(ctx context.Context) (Outcome, error) {
	ids, err := j.IDs(ctx)
	if err != nil {
		return Failure, err
	}
	for _, id := range ids {
		outcome, err := j.Delete(ctx, id)
		if err != nil || outcome == Failure {
			return Failure, err
		}
	}
	return Success, nil
}

// baseName handles both separators since the server may run on either OS.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
