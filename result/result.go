// Package result implements the Result Materializer (§4.E): turning the
// flat rows a compiled statement returns back into term.Term bindings,
// using the same IRI-vs-Literal disambiguation rule the store's readback
// path uses (term.FromStored), grounded on sparqlalchemy.py's
// query_algebra/_db_to_rdflib pairing.
package result

import (
	"database/sql"
	"fmt"

	"github.com/gooofy/quadstore/compiler"
	"github.com/gooofy/quadstore/term"
)

// Result is one SPARQL SELECT result set: the projected variable names, in
// the order the query named them, and one binding map per result row.
// A variable absent from a given row's map means it was unbound in that row
// (the OPTIONAL no-match case), not bound to an empty literal.
type Result struct {
	Vars     []string
	Bindings []map[string]term.Term
}

// FromRows scans *sql.Rows produced by running a Compiled statement into a
// Result, consuming rows until exhaustion or the first scan error.
func FromRows(rows *sql.Rows, compiled compiler.Compiled) (Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("result: reading columns: %w", err)
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}

	res := Result{Vars: append([]string(nil), compiled.Vars.Vars...)}

	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("result: scanning row: %w", err)
		}

		binding := make(map[string]term.Term, len(res.Vars))
		for _, v := range res.Vars {
			oCol, ok := idx[v]
			if !ok {
				continue
			}
			o := toNullableString(raw[oCol])
			if o == nil {
				// the variable's main column is NULL: unmatched OPTIONAL leg.
				continue
			}
			var lang, datatype string
			if compiled.Vars.Lang[v] {
				if s := toNullableString(raw[idx[v+"_lang"]]); s != nil {
					lang = *s
				}
			}
			if compiled.Vars.Dts[v] {
				if s := toNullableString(raw[idx[v+"_dt"]]); s != nil {
					datatype = *s
				}
			}
			binding[v] = term.FromStored(*o, lang, datatype)
		}
		res.Bindings = append(res.Bindings, binding)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("result: iterating rows: %w", err)
	}
	return res, nil
}

func toNullableString(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case []byte:
		s := string(t)
		return &s
	default:
		s := fmt.Sprintf("%v", t)
		return &s
	}
}
