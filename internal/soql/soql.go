package soql

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is returned when a query cannot be parsed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("soql: %s at position %d", e.Msg, e.Pos)
}

// Query is a parsed SELECT statement.
type Query struct {
	// Columns holds the select list in order.
	Columns []Column
	// From is the object type, or the relationship name for a subquery.
	From    string
	Where   *Condition
	OrderBy []Order
	// Limit is -1 when absent.
	Limit  int
	Offset int
}

// Column is one select list item: a field path or a subquery.
type Column struct {
	Field string
	Sub   *Query
}

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Desc      bool
	NullsLast bool
}

// Fields returns the projected field paths in select order, excluding
// subqueries.
func (q *Query) Fields() []string {
	out := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		if c.Sub == nil {
			out = append(out, c.Field)
		}
	}
	return out
}

// Subqueries returns the relationship subqueries in select order.
func (q *Query) Subqueries() []*Query {
	var out []*Query
	for _, c := range q.Columns {
		if c.Sub != nil {
			out = append(out, c.Sub)
		}
	}
	return out
}

// References returns every field path the query reads from its own object:
// projected fields, WHERE fields and ORDER BY fields, without duplicates.
func (q *Query) References() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		key := strings.ToLower(f)
		if !seen[key] {
			seen[key] = true
			out = append(out, f)
		}
	}
	for _, f := range q.Fields() {
		add(f)
	}
	if q.Where != nil {
		for _, f := range q.Where.Fields {
			add(f)
		}
	}
	for _, o := range q.OrderBy {
		add(o.Field)
	}
	return out
}

// Parse parses a SELECT statement.
func Parse(src string) (*Query, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	q, err := p.parseQuery(false)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
	return q, nil
}

type parser struct {
	tokens []token
	pos    int

	// where collects the expression source and field references of the
	// condition being parsed.
	where  strings.Builder
	fields []string
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expectKeyword(keyword string) error {
	tok := p.next()
	if !tok.is(keyword) {
		return p.errorf(tok, "expected %s, got %s", keyword, describe(tok))
	}
	return nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, got %s", kind, describe(tok))
	}
	return tok, nil
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return tok.kind.String()
	}
	return strconv.Quote(tok.text)
}

func (p *parser) parseQuery(sub bool) (*Query, error) {
	q := &Query{Limit: -1}

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		switch {
		case tok.kind == tokLParen:
			if sub {
				return nil, p.errorf(tok, "nested subqueries are not supported")
			}
			p.next()
			child, err := p.parseQuery(true)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			q.Columns = append(q.Columns, Column{Sub: child})
		case tok.kind == tokIdent && !tok.is("FROM"):
			p.next()
			q.Columns = append(q.Columns, Column{Field: tok.text})
		default:
			return nil, p.errorf(tok, "expected field, got %s", describe(tok))
		}

		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	q.From = from.text

	if p.peek().is("WHERE") {
		p.next()
		cond, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = cond
	}

	if p.peek().is("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		orders, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = orders
	}

	if p.peek().is("LIMIT") {
		p.next()
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		q.Limit = n
	}

	if p.peek().is("OFFSET") {
		p.next()
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		q.Offset = n
	}

	return q, nil
}

func (p *parser) parseCount() (int, error) {
	tok, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil || n < 0 {
		return 0, p.errorf(tok, "expected a non-negative integer, got %q", tok.text)
	}
	return n, nil
}

func (p *parser) parseOrderBy() ([]Order, error) {
	var orders []Order
	for {
		field, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		o := Order{Field: field.text}

		switch {
		case p.peek().is("ASC"):
			p.next()
		case p.peek().is("DESC"):
			p.next()
			o.Desc = true
		}
		// Nulls sort first ascending and last descending unless stated.
		o.NullsLast = o.Desc
		if p.peek().is("NULLS") {
			p.next()
			tok := p.next()
			switch {
			case tok.is("FIRST"):
				o.NullsLast = false
			case tok.is("LAST"):
				o.NullsLast = true
			default:
				return nil, p.errorf(tok, "expected FIRST or LAST, got %s", describe(tok))
			}
		}
		orders = append(orders, o)

		if p.peek().kind != tokComma {
			return orders, nil
		}
		p.next()
	}
}

// parseWhere parses a condition and compiles it.
func (p *parser) parseWhere() (*Condition, error) {
	p.where.Reset()
	p.fields = nil

	start := p.peek()
	if err := p.parseOr(); err != nil {
		return nil, err
	}

	cond, err := compileCondition(p.where.String(), p.fields)
	if err != nil {
		return nil, p.errorf(start, "invalid condition: %v", err)
	}
	return cond, nil
}

func (p *parser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for p.peek().is("OR") {
		p.next()
		p.where.WriteString(" or ")
		if err := p.parseAnd(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseAnd() error {
	if err := p.parseUnary(); err != nil {
		return err
	}
	for p.peek().is("AND") {
		p.next()
		p.where.WriteString(" and ")
		if err := p.parseUnary(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseUnary() error {
	tok := p.peek()
	switch {
	case tok.is("NOT"):
		p.next()
		p.where.WriteString("not ")
		return p.parseUnary()
	case tok.kind == tokLParen:
		p.next()
		p.where.WriteByte('(')
		if err := p.parseOr(); err != nil {
			return err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return err
		}
		p.where.WriteByte(')')
		return nil
	}
	return p.parsePredicate()
}

// comparisons maps query operators to evaluator functions.
var comparisons = map[string]string{
	"=":  "eq",
	"!=": "ne",
	"<>": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

func (p *parser) parsePredicate() error {
	field, err := p.expect(tokIdent)
	if err != nil {
		return err
	}
	if isKeyword(field.text) {
		return p.errorf(field, "expected field, got %q", field.text)
	}
	p.fields = append(p.fields, field.text)
	ref := "field(" + strconv.Quote(field.text) + ")"

	negate := false
	if p.peek().is("NOT") {
		p.next()
		negate = true
	}

	tok := p.next()
	switch {
	case tok.kind == tokOp && !negate:
		lit, err := p.parseLiteral()
		if err != nil {
			return err
		}
		fmt.Fprintf(&p.where, "%s(%s, %s)", comparisons[tok.text], ref, lit)

	case tok.is("LIKE"):
		pat, err := p.expect(tokString)
		if err != nil {
			return err
		}
		if negate {
			p.where.WriteString("not ")
		}
		fmt.Fprintf(&p.where, "like(%s, %s)", ref, strconv.Quote(pat.text))

	case tok.is("IN"):
		if _, err := p.expect(tokLParen); err != nil {
			return err
		}
		var values []string
		for {
			lit, err := p.parseLiteral()
			if err != nil {
				return err
			}
			values = append(values, lit)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen); err != nil {
			return err
		}
		if negate {
			p.where.WriteString("not ")
		}
		fmt.Fprintf(&p.where, "within(%s, [%s])", ref, strings.Join(values, ", "))

	default:
		return p.errorf(tok, "expected operator, got %s", describe(tok))
	}
	return nil
}

// parseLiteral returns the expression source for a literal value.
func (p *parser) parseLiteral() (string, error) {
	tok := p.next()
	switch {
	case tok.kind == tokString:
		return strconv.Quote(tok.text), nil
	case tok.kind == tokNumber:
		if _, err := strconv.ParseFloat(tok.text, 64); err != nil {
			return "", p.errorf(tok, "invalid number %q", tok.text)
		}
		return tok.text, nil
	case tok.is("TRUE"):
		return "true", nil
	case tok.is("FALSE"):
		return "false", nil
	case tok.is("NULL"):
		return "nil", nil
	}
	return "", p.errorf(tok, "expected value, got %s", describe(tok))
}

var keywords = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "LIKE", "IN",
	"ORDER", "BY", "ASC", "DESC", "NULLS", "FIRST", "LAST", "LIMIT", "OFFSET",
	"TRUE", "FALSE", "NULL",
}

func isKeyword(s string) bool {
	for _, k := range keywords {
		if strings.EqualFold(s, k) {
			return true
		}
	}
	return false
}
