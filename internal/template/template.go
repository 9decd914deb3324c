// Package template implements the %var%-delimited filename templating
// model from spec.md §6, grounded on
// original_source/jill/util/simple_template.hh's SimpleTemplate.
// Wall-clock variables are formatted with github.com/lestrrat-go/strftime
// before being bound, so month/day naming reuses strftime's formatting
// instead of a hand-rolled table.
package template

import (
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

const delimiter = '%'

// Expander implements writer.TemplateExpander: %var% runs are replaced
// by the bound value for var, or "_" if var is unbound.
type Expander struct{}

// Expand substitutes every %var% run in tmpl using vars, rendering
// unbound variables as "_".
func (Expander) Expand(tmpl string, vars map[string]string) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		if tmpl[i] != delimiter {
			b.WriteByte(tmpl[i])
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], delimiter)
		if end < 0 {
			// unterminated %, pass the rest through literally
			b.WriteString(tmpl[i:])
			break
		}
		key := tmpl[i+1 : i+1+end]
		if v, ok := vars[key]; ok {
			b.WriteString(v)
		} else {
			b.WriteByte('_')
		}
		i += end + 2
	}
	return b.String()
}

// WallClockVars formats the standard wall-clock variables spec.md §6
// requires (year, month (full name), day, hour, min, sec) at t, using
// strftime conversion specifiers internally.
func WallClockVars(t time.Time) map[string]string {
	return map[string]string{
		"year":  mustFormat("%Y", t),
		"month": mustFormat("%B", t),
		"day":   mustFormat("%d", t),
		"hour":  mustFormat("%H", t),
		"min":   mustFormat("%M", t),
		"sec":   mustFormat("%S", t),
	}
}

func mustFormat(spec string, t time.Time) string {
	f, err := strftime.New(spec)
	if err != nil {
		// the conversion specifiers above are all fixed literals
		// known at compile time to be valid.
		panic(err)
	}
	return f.FormatString(t)
}
