package forcemock

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/getmockd/sfrecord/internal/id"
	"github.com/getmockd/sfrecord/internal/soql"
	"github.com/getmockd/sfrecord/pkg/httputil"
)

// queryResult is one page of a query response.
type queryResult struct {
	TotalSize      int         `json:"totalSize"`
	Done           bool        `json:"done"`
	NextRecordsURL string      `json:"nextRecordsUrl,omitempty"`
	Records        []*document `json:"records"`
}

// cursor holds the rows of a paged query that have not been returned yet.
type cursor struct {
	docs  []*document
	total int
}

// cursors tracks open query locators.
type cursors struct {
	mu    sync.Mutex
	open  map[string]*cursor
	limit int
}

func newCursors() *cursors {
	return &cursors{open: make(map[string]*cursor), limit: 1000}
}

// page returns the rows at pos and, when more remain, the locator of the
// next page.
func (cs *cursors) page(key string, c *cursor, pos, batch int, version string) queryResult {
	end := min(pos+batch, len(c.docs))
	res := queryResult{TotalSize: c.total, Done: end >= len(c.docs), Records: c.docs[pos:end]}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if res.Done {
		delete(cs.open, key)
		return res
	}
	if _, ok := cs.open[key]; !ok {
		if len(cs.open) >= cs.limit {
			// drop an arbitrary locator rather than grow without bound
			for k := range cs.open {
				delete(cs.open, k)
				break
			}
		}
		cs.open[key] = c
	}
	res.NextRecordsURL = fmt.Sprintf("/services/data/%s/query/%s-%d", version, key, end)
	return res
}

func (cs *cursors) get(key string) (*cursor, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.open[key]
	return c, ok
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	version := r.PathValue("version")
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, &APIError{Status: http.StatusBadRequest, Code: CodeMalformedQuery, Message: "A query string has to be specified"})
		return
	}

	parsed, err := soql.Parse(q)
	if err != nil {
		writeError(w, malformedQuery(err))
		return
	}

	docs, err := s.runQuery(parsed, version)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Debug("query executed", "type", parsed.From, "rows", len(docs))
	c := &cursor{docs: docs, total: len(docs)}
	httputil.WriteOK(w, s.cursors.page("01g"+id.Short(), c, 0, s.config.batchSize(), version))
}

func (s *Server) handleQueryMore(w http.ResponseWriter, r *http.Request) {
	locator := r.PathValue("locator")
	sep := strings.LastIndexByte(locator, '-')
	if sep <= 0 {
		writeError(w, &APIError{Status: http.StatusBadRequest, Code: CodeInvalidQueryLocator, Message: "invalid query locator"})
		return
	}
	key := locator[:sep]
	pos, err := strconv.Atoi(locator[sep+1:])

	c, ok := s.cursors.get(key)
	if err != nil || !ok || pos < 0 || pos >= len(c.docs) {
		writeError(w, &APIError{Status: http.StatusNotFound, Code: CodeInvalidQueryLocator, Message: "invalid query locator"})
		return
	}

	httputil.WriteOK(w, s.cursors.page(key, c, pos, s.config.batchSize(), r.PathValue("version")))
}

// runQuery validates and evaluates a parsed query, returning rendered rows.
func (s *Server) runQuery(q *soql.Query, version string) ([]*document, error) {
	c, err := s.store.collection(q.From)
	if err != nil {
		return nil, invalidType(q.From)
	}
	if err := s.validateQuery(c, q); err != nil {
		return nil, err
	}

	views := s.views(c, c.snapshot())
	matched := soql.Apply(q, views)

	docs := make([]*document, 0, len(matched))
	for _, v := range matched {
		doc, err := s.renderColumns(v, q.Columns, version)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Server) validateQuery(c *collection, q *soql.Query) error {
	for _, f := range q.References() {
		if err := s.validatePath(c, f); err != nil {
			return err
		}
	}
	for _, sub := range q.Subqueries() {
		rel, ok := childRelationship(c, sub.From)
		if !ok {
			return &APIError{
				Status:  http.StatusBadRequest,
				Code:    CodeInvalidType,
				Message: fmt.Sprintf("Didn't understand relationship '%s' in FROM part of query call.", sub.From),
			}
		}
		child, err := s.store.collection(rel.Object)
		if err != nil {
			return err
		}
		if err := s.validateQuery(child, sub); err != nil {
			return err
		}
	}
	return nil
}

// validatePath checks a plain or dotted field path against the schema.
func (s *Server) validatePath(c *collection, path string) error {
	head, rest, dotted := strings.Cut(path, ".")
	if !dotted {
		c.mu.RLock()
		_, ok := c.canonical(head, false)
		c.mu.RUnlock()
		if !ok {
			return invalidField(path, c.config.Name)
		}
		return nil
	}

	lookup, ok := lookupByName(c, head)
	if !ok {
		return invalidField(path, c.config.Name)
	}
	target, err := s.store.collection(lookup.Object)
	if err != nil {
		return err
	}
	if err := s.validatePath(target, rest); err != nil {
		return invalidField(path, c.config.Name)
	}
	return nil
}

// rowView exposes a row to the query evaluator, resolving lookups.
type rowView struct {
	s *Server
	c *collection
	r *row
}

func (s *Server) views(c *collection, rows []*row) []rowView {
	out := make([]rowView, len(rows))
	for i, r := range rows {
		out[i] = rowView{s: s, c: c, r: r}
	}
	return out
}

// Value implements soql.Row.
func (v rowView) Value(path string) (any, bool) {
	head, rest, dotted := strings.Cut(path, ".")
	if !dotted {
		return v.field(head)
	}
	target, ok := v.follow(head)
	if !ok {
		return nil, false
	}
	return target.Value(rest)
}

func (v rowView) field(name string) (any, bool) {
	v.c.mu.RLock()
	canon, ok := v.c.canonical(name, false)
	v.c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if val, ok := v.r.system(canon); ok {
		return val, true
	}
	val, ok := v.r.Fields[canon]
	return val, ok
}

// follow resolves a lookup relationship to the referenced row.
func (v rowView) follow(name string) (rowView, bool) {
	lookup, ok := lookupByName(v.c, name)
	if !ok {
		return rowView{}, false
	}
	ref, _ := v.r.Fields[lookup.Field].(string)
	if ref == "" {
		return rowView{}, false
	}
	target, err := v.s.store.collection(lookup.Object)
	if err != nil {
		return rowView{}, false
	}
	r, err := v.s.store.get(lookup.Object, ref)
	if err != nil {
		return rowView{}, false
	}
	return rowView{s: v.s, c: target, r: r}, true
}

// renderColumns renders a row in select-list order.
func (s *Server) renderColumns(v rowView, columns []soql.Column, version string) (*document, error) {
	doc := newDocument()
	doc.set("attributes", attributes(v.c.config.Name, v.r.ID, version))

	for _, col := range columns {
		if col.Sub != nil {
			if err := s.renderChildren(doc, v, col.Sub, version); err != nil {
				return nil, err
			}
			continue
		}
		s.renderPath(doc, v, col.Field, version)
	}
	return doc, nil
}

// renderPath sets a plain field, or a nested lookup row for a dotted path.
func (s *Server) renderPath(doc *document, v rowView, path string, version string) {
	head, rest, dotted := strings.Cut(path, ".")
	if !dotted {
		v.c.mu.RLock()
		canon, _ := v.c.canonical(head, false)
		v.c.mu.RUnlock()
		val, _ := v.field(canon)
		doc.set(canon, val)
		return
	}

	lookup, _ := lookupByName(v.c, head)
	target, ok := v.follow(head)
	if !ok {
		if _, exists := doc.get(lookup.Name); !exists {
			doc.set(lookup.Name, nil)
		}
		return
	}

	nested, _ := doc.values[lookup.Name].(*document)
	if nested == nil {
		nested = newDocument()
		nested.set("attributes", attributes(target.c.config.Name, target.r.ID, version))
		doc.set(lookup.Name, nested)
	}
	s.renderPath(nested, target, rest, version)
}

// renderChildren runs a relationship subquery for one parent row.
func (s *Server) renderChildren(doc *document, parent rowView, sub *soql.Query, version string) error {
	rel, _ := childRelationship(parent.c, sub.From)
	child, err := s.store.collection(rel.Object)
	if err != nil {
		return err
	}

	var rows []*row
	for _, r := range child.snapshot() {
		if ref, _ := r.Fields[fieldCanonical(child, rel.Field)].(string); ref != "" && sameID(ref, parent.r.ID) {
			rows = append(rows, r)
		}
	}
	matched := soql.Apply(sub, s.views(child, rows))

	if len(matched) == 0 {
		doc.set(rel.Name, nil)
		return nil
	}
	records := make([]*document, 0, len(matched))
	for _, v := range matched {
		rendered, err := s.renderColumns(v, sub.Columns, version)
		if err != nil {
			return err
		}
		records = append(records, rendered)
	}
	doc.set(rel.Name, queryResult{TotalSize: len(records), Done: true, Records: records})
	return nil
}

func lookupByName(c *collection, name string) (Lookup, bool) {
	for _, l := range c.config.Lookups {
		if fold(l.Name) == fold(name) {
			return l, true
		}
	}
	return Lookup{}, false
}

func childRelationship(c *collection, name string) (ChildRelationship, bool) {
	for _, rel := range c.config.Children {
		if fold(rel.Name) == fold(name) {
			return rel, true
		}
	}
	return ChildRelationship{}, false
}

func fieldCanonical(c *collection, name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	canon, ok := c.canonical(name, false)
	if !ok {
		return name
	}
	return canon
}

// sameID compares identities in either length.
func sameID(a, b string) bool {
	na, errA := id.Normalize(a)
	nb, errB := id.Normalize(b)
	return errA == nil && errB == nil && na == nb
}
