package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/quiverkit/pkg/buildinfo"
	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/errors"
	qio "github.com/matzehuels/quiverkit/pkg/io"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/quiver"
	"github.com/matzehuels/quiverkit/pkg/store"
	"github.com/matzehuels/quiverkit/pkg/tikzcd"
)

// ----- Requests and responses -----

// importRequest carries a tikz-cd source plus pipeline options.
type importRequest struct {
	pipeline.Options
}

type importResponse struct {
	Diagram     json.RawMessage `json:"diagram"`
	URL         string          `json:"url"`
	Diagnostics diagnostic.List `json:"diagnostics"`
	Settings    tikzcd.Settings `json:"settings"`
	Cached      bool            `json:"cached"`
}

// exportRequest carries a compact diagram plus pipeline options.
type exportRequest struct {
	Diagram json.RawMessage `json:"diagram"`
	pipeline.Options
}

type exportResponse struct {
	Outputs           map[string]string `json:"outputs"`
	Incompatibilities []string          `json:"incompatibilities"`
	Dependencies      []string          `json:"dependencies"`
}

type createDiagramRequest struct {
	Diagram json.RawMessage `json:"diagram"`
	Title   string          `json:"title"`
}

type diagramResponse struct {
	*store.Diagram
	URL string `json:"url"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ----- Health -----

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

// ----- Pipeline -----

func (s *Server) importDiagram(w http.ResponseWriter, r *http.Request) {
	req := importRequest{Options: s.requestDefaults()}
	if !s.decode(w, r, &req) {
		return
	}
	opts := req.Options
	opts.Logger = s.logger

	imported, hit, err := s.runner.ImportWithCacheInfo(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	url, err := qio.ShareURL(s.baseURL(opts), imported.Quiver)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Diagram:     imported.Diagram,
		URL:         url,
		Diagnostics: imported.Diagnostics,
		Settings:    imported.Settings,
		Cached:      hit,
	})
}

func (s *Server) exportDiagram(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{Options: s.requestDefaults()}
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Diagram) == 0 {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "diagram is required"))
		return
	}
	opts := req.Options
	opts.Logger = s.logger

	rendered, err := s.runner.ExportEncoded(r.Context(), req.Diagram, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := exportResponse{
		Outputs:           make(map[string]string, len(rendered.Artifacts)),
		Incompatibilities: nonNil(rendered.Incompatibilities),
		Dependencies:      nonNil(rendered.Dependencies),
	}
	for format, data := range rendered.Artifacts {
		resp.Outputs[format] = string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----- Diagrams -----

func (s *Server) createDiagram(w http.ResponseWriter, r *http.Request) {
	var req createDiagramRequest
	if !s.decode(w, r, &req) {
		return
	}
	q, err := decodeDiagram(req.Diagram)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := qio.Marshal(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	d := store.New(data, strings.TrimSpace(req.Title), s.diagramTTL)
	if err := s.store.Save(r.Context(), d); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Debug("saved diagram", "id", d.ID, "cells", q.Len())

	w.Header().Set("Location", "/v1/diagrams/"+d.ID)
	s.writeDiagram(w, r, http.StatusCreated, d, q)
}

func (s *Server) getDiagram(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := decodeDiagram(d.Data)
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "stored diagram %s is corrupt", d.ID))
		return
	}
	s.writeDiagram(w, r, http.StatusOK, d, q)
}

func (s *Server) deleteDiagram(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeDiagram(w http.ResponseWriter, r *http.Request, status int, d *store.Diagram, q *quiver.Quiver) {
	url, err := qio.ShareURL(s.baseURL(s.defaults), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, diagramResponse{Diagram: d, URL: url})
}

// ----- Helpers -----

// requestDefaults returns the configured options for a request body to be
// decoded over. Formats are copied so that decoding never writes into the
// shared defaults.
func (s *Server) requestDefaults() pipeline.Options {
	opts := s.defaults
	opts.Formats = slices.Clone(s.defaults.Formats)
	return opts
}

func (s *Server) baseURL(opts pipeline.Options) string {
	if opts.BaseURL != "" {
		return opts.BaseURL
	}
	return pipeline.DefaultBaseURL
}

// decode reads a JSON request body into v, answering 400 or 413 itself when
// the body is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, string(errors.ErrCodeInvalidInput), "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeDiagram decodes a compact diagram, rejecting diagrams with
// malformed cells.
func decodeDiagram(data json.RawMessage) (*quiver.Quiver, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "diagram is required")
	}
	q, err := qio.Decode(data)
	if err != nil {
		if q != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCell, err, "invalid diagram")
		}
		return nil, err
	}
	return q, nil
}

// fail maps err to a status and writes it. Internal errors are logged and
// reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := errors.UserMessage(err)
	var cellErr *errors.CellError
	if stderrors.As(err, &cellErr) && msg != cellErr.Error() {
		msg += ": " + cellErr.Error()
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err, "request_id", RequestIDFrom(r.Context()))
		msg = "internal error"
	}
	writeError(w, status, string(code), msg)
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, errors.Code) {
	var cellErr *errors.CellError
	if stderrors.As(err, &cellErr) && errors.GetCode(err) == "" {
		return http.StatusBadRequest, cellErr.Code()
	}

	code := errors.GetCode(err)
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidVersion,
		errors.ErrCodeInvalidCell, errors.ErrCodeInvalidID:
		return http.StatusBadRequest, code
	case errors.ErrCodeParseFailed:
		return http.StatusUnprocessableEntity, code
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound, errors.ErrCodeNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented, code
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, errors.ErrCodeInternal
	}
	return http.StatusInternalServerError, errors.ErrCodeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
