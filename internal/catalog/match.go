package catalog

import (
	"sort"
	"strings"
)

// Match is a part found by MatchParts with the field that matched.
type Match struct {
	Part  *Repuesto
	Field string
}

// MatchParts finds parts whose codes or descriptions contain query, case
// insensitively. Exact code matches sort first, then by short text.
// Pending codes never match.
func MatchParts(parts []*Repuesto, query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	type scored struct {
		Match
		exact bool
	}
	var hits []scored
	for _, p := range parts {
		fields := []struct {
			name, value string
			code        bool
		}{
			{"codigoSAP", p.CodigoSAP, true},
			{"codigoBaader", p.CodigoBaader, true},
			{"textoBreve", p.TextoBreve, false},
			{"descripcion", p.Descripcion, false},
		}
		for _, f := range fields {
			if f.code && isPending(f.value) {
				continue
			}
			v := strings.ToLower(f.value)
			if strings.Contains(v, q) {
				hits = append(hits, scored{Match{Part: p, Field: f.name}, f.code && v == q})
				break
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].exact != hits[j].exact {
			return hits[i].exact
		}
		return hits[i].Part.TextoBreve < hits[j].Part.TextoBreve
	})
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.Match
	}
	return out
}
