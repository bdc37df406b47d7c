// Package soql parses and evaluates the subset of the query language served
// by the in-memory backend.
//
// Supported:
//
//	SELECT f1, f2, Lookup.Name, (SELECT f FROM ChildRel WHERE ... ORDER BY ... LIMIT n)
//	FROM Type
//	WHERE a = 'x' AND (b > 5 OR c IN ('p', 'q')) AND NOT d LIKE 'pre%' AND e != null
//	ORDER BY f ASC NULLS LAST, g DESC
//	LIMIT n OFFSET m
//
// WHERE clauses are compiled to expr programs once at parse time. String
// comparisons ignore case. Aggregates, date literals and semi-joins are not
// supported.
package soql
