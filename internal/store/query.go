package store

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Apply orders and caps docs in memory the way a server-side query would.
// Documents missing the order field, or holding null, sort last.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, len(docs))
	copy(out, docs)
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i][q.OrderBy], out[j][q.OrderBy]
			aok, bok := a != nil, b != nil
			if !aok || !bok {
				return aok && !bok
			}
			cmp := compareValues(a, b)
			if q.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compareValues orders numbers before strings before booleans before
// anything else; values of the same kind compare naturally.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	case 1:
		return strings.Compare(a.(string), b.(string))
	case 2:
		ab, bb := a.(bool), b.(bool)
		switch {
		case !ab && bb:
			return -1
		case ab && !bb:
			return 1
		}
	}
	return 0
}

func rank(v any) int {
	if _, ok := toFloat(v); ok {
		return 0
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 2
	}
	return 3
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return 0, false
	}
	return 0, false
}

// IntField reads an integer field regardless of how it was decoded
func IntField(doc Document, field string) (int, bool) {
	switch n := doc[field].(type) {
	case json.Number:
		v, err := strconv.Atoi(n.String())
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return v, true
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case nil:
		return 0, true
	}
	return 0, false
}
