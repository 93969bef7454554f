package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matzehuels/crateapi/pkg/buildinfo"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/observability"
	"github.com/matzehuels/crateapi/pkg/pipeline"
)

// Source names one package graph in a request body. Either Raw (with an
// optional Manifest) or Crate is set.
type Source struct {
	Raw      json.RawMessage `json:"raw,omitempty"`
	Manifest string          `json:"manifest,omitempty"`
	Crate    string          `json:"crate,omitempty"`
	Version  string          `json:"version,omitempty"`
	Refresh  bool            `json:"refresh,omitempty"`
}

// APIRequest is the body of POST /v1/api.
type APIRequest struct {
	Source
	Format string `json:"format,omitempty"`
}

// DiffRequest is the body of POST /v1/diff.
type DiffRequest struct {
	Before Source `json:"before"`
	After  Source `json:"after"`
	Format string `json:"format,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      errs.Code `json:"code"`
	Error     string    `json:"error"`
	RequestID string    `json:"request_id"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

var contentTypes = map[string]string{
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatMarkdown: "text/markdown; charset=utf-8",
	pipeline.FormatDOT:      "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:      "image/svg+xml",
}

// options converts src to pipeline options. Only inline sources are
// accepted; the server never touches the local filesystem.
func (src Source) options() (pipeline.Options, error) {
	if len(src.Raw) == 0 && src.Crate == "" {
		return pipeline.Options{}, errs.New(errs.ErrCodeInvalidInput, "one of raw and crate is required")
	}
	if src.Crate != "" && src.Manifest != "" {
		return pipeline.Options{}, errs.New(errs.ErrCodeInvalidInput, "manifest cannot be combined with crate")
	}
	opts := pipeline.Options{
		Raw:      src.Raw,
		Manifest: src.Manifest,
		Crate:    src.Crate,
		Version:  src.Version,
		Refresh:  src.Refresh,
	}
	return opts, opts.ValidateAndSetDefaults()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req APIRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = pipeline.FormatJSON
	}
	if _, ok := contentTypes[req.Format]; !ok {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, md, dot, svg)", req.Format))
		return
	}
	opts, err := req.options()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.BuildAPI(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := pipeline.Render(r.Context(), res.Api, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cacheStatus := "miss"
	if res.CacheHit {
		cacheStatus = "hit"
	}
	w.Header().Set("X-Cache", cacheStatus)
	if res.CacheKey != "" {
		w.Header().Set("X-Cache-Key", res.CacheKey)
	}
	w.Header().Set("Content-Type", contentTypes[req.Format])
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = pipeline.FormatJSON
	}
	if req.Format != pipeline.FormatJSON && req.Format != pipeline.FormatMarkdown {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidFormat, "invalid diff format: %q (must be one of: json, md)", req.Format))
		return
	}
	before, err := req.Before.options()
	if err != nil {
		s.writeError(w, r, errs.New(errs.GetCode(err), "before: %s", errs.UserMessage(err)))
		return
	}
	after, err := req.After.options()
	if err != nil {
		s.writeError(w, r, errs.New(errs.GetCode(err), "after: %s", errs.UserMessage(err)))
		return
	}

	res, err := s.runner.Diff(r.Context(), before, after)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Format == pipeline.FormatJSON {
		writeJSON(w, http.StatusOK, pipeline.NewDiffDocument(res))
		return
	}
	out, err := pipeline.RenderDiff(res, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[req.Format])
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.New(errs.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request")
	}
	return nil
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidPackage,
		errs.ErrCodeInvalidManifest, errs.ErrCodeInvalidPath, errs.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errs.ErrCodeApiParse:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotFound, errs.ErrCodePackageNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeGenerate:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	status := statusFor(code)
	id := RequestID(r.Context())

	// Only internal failures go to hooks; bad input is the client's problem.
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", id, "path", r.URL.Path, "err", err)
		observability.HTTP().OnError(r.Context(), id, r.Method, r.URL.Path, err)
	} else {
		s.logger.Debug("request rejected", "id", id, "path", r.URL.Path, "code", code)
	}

	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Error:     errs.UserMessage(err),
		RequestID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypes[pipeline.FormatJSON])
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
