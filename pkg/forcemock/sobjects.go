package forcemock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getmockd/sfrecord/internal/soql"
	"github.com/getmockd/sfrecord/pkg/httputil"
)

// maxBodySize bounds request bodies on write endpoints.
const maxBodySize = 1 << 20

// createResult is the body of a successful create.
type createResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	typeName := r.PathValue("type")

	fields, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rid, err := s.store.Insert(typeName, fields)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Debug("record created", "type", typeName, "id", rid, "fields", len(fields))
	httputil.WriteCreated(w, createResult{ID: rid, Success: true, Errors: []string{}})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	typeName, rid := r.PathValue("type"), r.PathValue("id")
	version := r.PathValue("version")

	c, err := s.store.collection(typeName)
	if err != nil {
		writeError(w, err)
		return
	}

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = append(fields, fieldID)
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" && !containsFold(fields, f) {
				fields = append(fields, f)
			}
		}
		for _, f := range fields {
			if err := s.validatePath(c, f); err != nil {
				writeError(w, err)
				return
			}
		}
	} else {
		c.mu.RLock()
		fields = c.fieldNames()
		c.mu.RUnlock()
	}

	found, err := s.store.get(typeName, rid)
	if err != nil {
		writeError(w, err)
		return
	}

	columns := make([]soql.Column, len(fields))
	for i, f := range fields {
		columns[i] = soql.Column{Field: f}
	}
	doc, err := s.renderColumns(rowView{s: s, c: c, r: found}, columns, version)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteOK(w, doc)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	typeName, rid := r.PathValue("type"), r.PathValue("id")

	fields, err := decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.Update(typeName, rid, fields); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Debug("record updated", "type", typeName, "id", rid, "fields", len(fields))
	httputil.WriteNoContent(w)
}

// handleOverride serves POST on a record URL, which is only valid with the
// _HttpMethod=PATCH override.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.URL.Query().Get("_HttpMethod"), http.MethodPatch) {
		writeError(w, &APIError{
			Status:  http.StatusMethodNotAllowed,
			Code:    CodeMethodNotAllowed,
			Message: fmt.Sprintf("HTTP Method '%s' not allowed. Allowed are GET,PATCH,DELETE", r.Method),
		})
		return
	}
	s.handleUpdate(w, r)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	typeName, rid := r.PathValue("type"), r.PathValue("id")

	if err := s.store.Delete(typeName, rid); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Debug("record deleted", "type", typeName, "id", rid)
	httputil.WriteNoContent(w)
}

// decodeBody reads a JSON object body, keeping numbers exact.
func decodeBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Code: CodeJSONParserError, Message: err.Error()}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Code: CodeJSONParserError, Message: fmt.Sprintf("Unexpected body: %v", err)}
	}
	if fields == nil {
		return map[string]any{}, nil
	}
	return fields, nil
}
