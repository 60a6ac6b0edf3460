// Package query filters, sorts and limits participant statistics.
//
// A Query is an immutable pipeline description. Nothing is evaluated until it
// is iterated with Seq, All or Each, and every iteration starts from the
// source again.
//
//	top := query.From(stats).
//		Filter("passing_att", query.Gt(0)).
//		Sort("passing_yds", true).
//		Limit(5).
//		All()
package query

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/pable/nflfeed/internal/model"
)

// Value is a field value: a number or a string.
type Value struct {
	Num     float64
	Str     string
	Numeric bool
}

func num(f float64) Value { return Value{Num: f, Numeric: true} }

func str(s string) Value { return Value{Str: s} }

func (v Value) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

// Accessor reads a field from a record; ok is false when the record lacks it.
type Accessor func(p *model.ParticipantStats) (v Value, ok bool)

var accessors = map[string]Accessor{
	"id":       func(p *model.ParticipantStats) (Value, bool) { return str(p.ID), true },
	"name":     nonEmpty(func(p *model.ParticipantStats) string { return p.Name }),
	"team":     nonEmpty(func(p *model.ParticipantStats) string { return p.Team }),
	"position": nonEmpty(func(p *model.ParticipantStats) string { return p.Position }),
	"home": func(p *model.ParticipantStats) (Value, bool) {
		if p.Home == model.SideUnknown {
			return Value{}, false
		}
		return str(p.Home.String()), true
	},
	"games":      func(p *model.ParticipantStats) (Value, bool) { return num(float64(p.Games)), true },
	"touchdowns": func(p *model.ParticipantStats) (Value, bool) { return num(p.Touchdowns()), true },
}

func nonEmpty(get func(*model.ParticipantStats) string) Accessor {
	return func(p *model.ParticipantStats) (Value, bool) {
		s := get(p)
		return str(s), s != ""
	}
}

// Field returns the accessor for a named field. Names outside the fixed
// attribute set are stat names, e.g. "rushing_yds".
func Field(name string) Accessor {
	if a, ok := accessors[name]; ok {
		return a
	}
	return func(p *model.ParticipantStats) (Value, bool) {
		v, ok := p.Stat(name)
		return num(v), ok
	}
}

// ---- Predicates ----

// Predicate tests a field value.
type Predicate func(Value) bool

func numeric(cmp func(a float64) bool) Predicate {
	return func(v Value) bool { return v.Numeric && cmp(v.Num) }
}

// Numeric comparisons never match string fields.
func Eq(x float64) Predicate { return numeric(func(a float64) bool { return a == x }) }
func Ne(x float64) Predicate { return numeric(func(a float64) bool { return a != x }) }
func Gt(x float64) Predicate { return numeric(func(a float64) bool { return a > x }) }
func Ge(x float64) Predicate { return numeric(func(a float64) bool { return a >= x }) }
func Lt(x float64) Predicate { return numeric(func(a float64) bool { return a < x }) }
func Le(x float64) Predicate { return numeric(func(a float64) bool { return a <= x }) }

// Is matches a string field exactly.
func Is(s string) Predicate {
	return func(v Value) bool { return !v.Numeric && v.Str == s }
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(v Value) bool { return !p(v) }
}

// ParsePredicate parses "field<op>value", where op is one of = == != > >= <
// <=. A numeric value yields a numeric comparison; anything else is matched as
// a string with = or !=.
func ParsePredicate(expr string) (string, Predicate, error) {
	ops := []string{">=", "<=", "!=", "==", "=", ">", "<"}
	for i := 0; i < len(expr); i++ {
		for _, op := range ops {
			if !strings.HasPrefix(expr[i:], op) {
				continue
			}
			field := strings.TrimSpace(expr[:i])
			raw := strings.TrimSpace(expr[i+len(op):])
			if field == "" || raw == "" {
				return "", nil, fmt.Errorf("parse predicate %q: missing field or value", expr)
			}
			p, err := build(op, raw)
			if err != nil {
				return "", nil, fmt.Errorf("parse predicate %q: %w", expr, err)
			}
			return field, p, nil
		}
	}
	return "", nil, fmt.Errorf("parse predicate %q: no operator", expr)
}

func build(op, raw string) (Predicate, error) {
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		switch op {
		case "=", "==":
			return Is(raw), nil
		case "!=":
			return Not(Is(raw)), nil
		}
		return nil, fmt.Errorf("operator %s needs a number, got %q", op, raw)
	}
	switch op {
	case "=", "==":
		return Eq(x), nil
	case "!=":
		return Ne(x), nil
	case ">":
		return Gt(x), nil
	case ">=":
		return Ge(x), nil
	case "<":
		return Lt(x), nil
	default:
		return Le(x), nil
	}
}

// ---- Query ----

type stage func(iter.Seq[model.ParticipantStats]) iter.Seq[model.ParticipantStats]

// Query is a lazily evaluated pipeline over participant statistics.
type Query struct {
	src    []model.ParticipantStats
	stages []stage
}

// From starts a query over stats. The slice is read at iteration time.
func From(stats []model.ParticipantStats) Query {
	return Query{src: stats}
}

func (q Query) with(s stage) Query {
	return Query{src: q.src, stages: append(slices.Clip(q.stages), s)}
}

// CategoryField names a record's stat categories. A filter on it matches when
// any category the record has stats in satisfies the predicate, so
// "category=passing" keeps everyone with a passing stat.
const CategoryField = "category"

// Filter keeps records whose field satisfies p. Records lacking the field are
// excluded.
func (q Query) Filter(field string, p Predicate) Query {
	match := func(rec *model.ParticipantStats) bool {
		v, ok := Field(field)(rec)
		return ok && p(v)
	}
	if field == CategoryField {
		match = func(rec *model.ParticipantStats) bool {
			for _, cat := range model.Categories {
				if rec.HasCategory(cat) && p(str(cat)) {
					return true
				}
			}
			return false
		}
	}
	return q.with(func(in iter.Seq[model.ParticipantStats]) iter.Seq[model.ParticipantStats] {
		return func(yield func(model.ParticipantStats) bool) {
			for rec := range in {
				if match(&rec) {
					if !yield(rec) {
						return
					}
				}
			}
		}
	})
}

// Category keeps records with at least one stat in cat.
func (q Query) Category(cat string) Query {
	return q.Filter(CategoryField, Is(cat))
}

// Sort orders records by field, descending when desc is set. Records lacking
// the field sort last; ties are broken by participant id.
func (q Query) Sort(field string, desc bool) Query {
	get := Field(field)
	return q.with(func(in iter.Seq[model.ParticipantStats]) iter.Seq[model.ParticipantStats] {
		return func(yield func(model.ParticipantStats) bool) {
			type keyed struct {
				rec model.ParticipantStats
				v   Value
				ok  bool
			}
			var all []keyed
			for rec := range in {
				v, ok := get(&rec)
				all = append(all, keyed{rec, v, ok})
			}
			sort.SliceStable(all, func(i, j int) bool {
				a, b := all[i], all[j]
				if a.ok != b.ok {
					return a.ok
				}
				if a.ok {
					if c := compare(a.v, b.v); c != 0 {
						if desc {
							return c > 0
						}
						return c < 0
					}
				}
				return a.rec.ID < b.rec.ID
			})
			for _, k := range all {
				if !yield(k.rec) {
					return
				}
			}
		}
	})
}

func compare(a, b Value) int {
	switch {
	case a.Numeric && b.Numeric:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case a.Numeric != b.Numeric:
		if a.Numeric {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Str, b.Str)
}

// Limit keeps at most n records. A negative n means no limit.
func (q Query) Limit(n int) Query {
	if n < 0 {
		return q
	}
	return q.with(func(in iter.Seq[model.ParticipantStats]) iter.Seq[model.ParticipantStats] {
		return func(yield func(model.ParticipantStats) bool) {
			if n == 0 {
				return
			}
			i := 0
			for rec := range in {
				if !yield(rec) {
					return
				}
				i++
				if i >= n {
					return
				}
			}
		}
	})
}

// Seq evaluates the query.
func (q Query) Seq() iter.Seq[model.ParticipantStats] {
	seq := iter.Seq[model.ParticipantStats](func(yield func(model.ParticipantStats) bool) {
		for _, rec := range q.src {
			if !yield(rec) {
				return
			}
		}
	})
	for _, s := range q.stages {
		seq = s(seq)
	}
	return seq
}

// All evaluates the query into a slice.
func (q Query) All() []model.ParticipantStats {
	return slices.Collect(q.Seq())
}

// Each calls fn for every result until fn returns false.
func (q Query) Each(fn func(model.ParticipantStats) bool) {
	for rec := range q.Seq() {
		if !fn(rec) {
			return
		}
	}
}
