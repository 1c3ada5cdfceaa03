package compiler

// idColumn is the column name every compiled subquery exposes for its
// synthetic per-row identifier, mirroring sparqlalchemy.py's ID_COLUMN_NAME.
const idColumn = "__id__"

// VarSet tracks, for one compiled algebra node, which SPARQL variables are
// bound and which of them additionally carry a language tag / datatype
// column. Every compiled subquery re-labels its output columns to exactly
// the variable name (and name+"_lang" / name+"_dt"), so a VarSet only needs
// to remember names, never column aliases — the alias is always derivable.
type VarSet struct {
	Vars []string
	Lang map[string]bool
	Dts  map[string]bool
}

func newVarSet() VarSet {
	return VarSet{Lang: map[string]bool{}, Dts: map[string]bool{}}
}

func (v VarSet) has(name string) bool {
	for _, n := range v.Vars {
		if n == name {
			return true
		}
	}
	return false
}

func (v *VarSet) add(name string) {
	if !v.has(name) {
		v.Vars = append(v.Vars, name)
	}
}

func (v VarSet) clone() VarSet {
	out := newVarSet()
	out.Vars = append([]string(nil), v.Vars...)
	for k := range v.Lang {
		out.Lang[k] = true
	}
	for k := range v.Dts {
		out.Dts[k] = true
	}
	return out
}
