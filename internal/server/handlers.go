package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidelias/django-firebird/internal/ddl"
	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/schema"
)

type rewriteRequest struct {
	SQL    string `json:"sql"`
	Params int    `json:"params"`
}

type rewriteResponse struct {
	SQL string `json:"sql"`
}

type createResponse struct {
	Statements []string                  `json:"statements"`
	Script     string                    `json:"script"`
	Unresolved []schema.PendingReference `json:"unresolved"`
}

type dropResponse struct {
	Statements []string `json:"statements"`
	Script     string   `json:"script"`
}

type tablesResponse struct {
	Tables     []string `json:"tables"`
	Generators []string `json:"generators"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req rewriteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "decode request", err))
		return
	}
	q, err := dialect.Rewrite(req.SQL, req.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rewriteResponse{SQL: q})
}

// handleCreate takes a YAML schema document. Tables named in the optional
// "existing" query parameters are treated as already created.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	tables, err := readSchema(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	existing := map[string]bool{}
	for _, name := range r.URL.Query()["existing"] {
		existing[name] = true
	}

	plan, err := ddl.CreateAll(tables, existing)
	if err != nil {
		s.writeError(w, err)
		return
	}
	unresolved := plan.Unresolved
	if unresolved == nil {
		unresolved = []schema.PendingReference{}
	}
	writeJSON(w, http.StatusOK, createResponse{
		Statements: plan.Statements,
		Script:     ddl.Script(plan.Statements),
		Unresolved: unresolved,
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	tables, err := readSchema(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stmts, err := ddl.DropAll(tables)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dropResponse{Statements: stmts, Script: ddl.Script(stmts)})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"message": "no database configured"})
		return
	}
	tables, err := s.catalog.ListTables(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	gens, err := s.catalog.ListGenerators(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: tables, Generators: gens})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	inspector, ok := s.catalog.(schema.Inspector)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"message": "table inspection unavailable"})
		return
	}
	info, err := inspector.InspectTable(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Kind == errs.ErrKindSchema {
			writeJSON(w, http.StatusNotFound, e.Payload())
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func readSchema(r *http.Request) ([]schema.Table, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read request body", err)
	}
	tables, err := schema.Parse(body)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, errs.New(errs.ErrKindSchema, "schema document declares no tables")
	}
	return tables, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		e = errs.Wrap(errs.ErrKindUnknown, "internal error", err)
	}
	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"kind": e.Kind.String()})
	}
	writeJSON(w, status, e.Payload())
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindFormat, errs.ErrKindInvalidInput, errs.ErrKindSchema:
		return http.StatusBadRequest
	case errs.ErrKindIntegrity:
		return http.StatusConflict
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindDatabase:
		return http.StatusBadGateway
	case errs.ErrKindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
