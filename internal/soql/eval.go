package soql

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/cases"
)

// Row is a record the evaluator can read fields from. Value resolves a field
// path, which may be dotted for lookups; the second result is false when the
// path does not resolve.
type Row interface {
	Value(path string) (any, bool)
}

// Condition is a compiled WHERE clause.
type Condition struct {
	// Source is the compiled expression, for diagnostics.
	Source string
	// Fields lists the field paths the condition reads, in order of appearance.
	Fields []string

	program *vm.Program
}

// Match reports whether the row satisfies the condition. Rows for which the
// condition cannot be evaluated do not match.
func (c *Condition) Match(row Row) bool {
	if c == nil {
		return true
	}
	out, err := expr.Run(c.program, newEnv(row))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func compileCondition(source string, fields []string) (*Condition, error) {
	program, err := expr.Compile(source, expr.Env(newEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &Condition{Source: source, Fields: fields, program: program}, nil
}

func newEnv(row Row) map[string]any {
	return map[string]any{
		"field": func(path string) any {
			if row == nil {
				return nil
			}
			v, _ := row.Value(path)
			return v
		},
		"eq":     equal,
		"ne":     notEqual,
		"lt":     ordered(func(c int) bool { return c < 0 }),
		"le":     ordered(func(c int) bool { return c <= 0 }),
		"gt":     ordered(func(c int) bool { return c > 0 }),
		"ge":     ordered(func(c int) bool { return c >= 0 }),
		"like":   like,
		"within": within,
	}
}

// Apply filters, sorts and pages rows according to the query.
func Apply[R Row](q *Query, rows []R) []R {
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		if q.Where.Match(r) {
			out = append(out, r)
		}
	}

	Sort(out, q.OrderBy)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return out[:0]
		}
		out = out[q.Offset:]
	}
	if q.Limit >= 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

// Sort orders rows by the given terms. Rows that compare equal keep their
// relative order.
func Sort[R Row](rows []R, orders []Order) {
	if len(orders) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b R) int {
		for _, o := range orders {
			va, _ := a.Value(o.Field)
			vb, _ := b.Value(o.Field)
			if c := orderValues(va, vb, o); c != 0 {
				return c
			}
		}
		return 0
	})
}

func orderValues(a, b any, o Order) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if o.NullsLast {
			return 1
		}
		return -1
	case b == nil:
		if o.NullsLast {
			return -1
		}
		return 1
	}

	c, ok := compare(a, b)
	if !ok {
		c = strings.Compare(fmt.Sprint(normalize(a)), fmt.Sprint(normalize(b)))
	}
	if o.Desc {
		return -c
	}
	return c
}

// foldString case-folds s. Casers keep state, so each call gets its own.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// normalize converts numbers to float64 so values decoded from JSON compare
// with literals.
func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// equal compares values the way the query language does: strings without
// regard to case, numbers by value, null only to null.
func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return foldString(va) == foldString(vb)
		}
		if vb, ok := b.(float64); ok {
			f, err := strconv.ParseFloat(va, 64)
			return err == nil && f == vb
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return va == vb
		}
		if vb, ok := b.(string); ok {
			f, err := strconv.ParseFloat(vb, 64)
			return err == nil && f == va
		}
	case bool:
		if vb, ok := b.(bool); ok {
			return va == vb
		}
	}
	return false
}

func notEqual(a, b any) bool {
	return !equal(a, b)
}

// ordered builds a comparison that is false for incomparable values,
// including null.
func ordered(test func(int) bool) func(a, b any) bool {
	return func(a, b any) bool {
		c, ok := compare(a, b)
		return ok && test(c)
	}
}

// compare orders two non-null values of the same kind. The second result is
// false when the values are not comparable.
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(foldString(va), foldString(vb)), true
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return cmp.Compare(va, vb), true
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0, true
			case !va:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

// like matches a string against a pattern where % matches any run of
// characters and _ matches exactly one. Matching ignores case.
func like(v any, pattern string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return likeMatch([]rune(foldString(s)), []rune(foldString(pattern)))
}

func likeMatch(s, p []rune) bool {
	// star and mark record the last % position for backtracking.
	star, mark := -1, 0
	i, j := 0, 0
	for i < len(s) {
		switch {
		case j < len(p) && (p[j] == '_' || p[j] == s[i]):
			i++
			j++
		case j < len(p) && p[j] == '%':
			star, mark = j, i
			j++
		case star >= 0:
			mark++
			i = mark
			j = star + 1
		default:
			return false
		}
	}
	for j < len(p) && p[j] == '%' {
		j++
	}
	return j == len(p)
}

func within(v any, list []any) bool {
	for _, item := range list {
		if equal(v, item) {
			return true
		}
	}
	return false
}
