package segmenter

import (
	"fmt"
	"strings"
)

// TemplateVars is the substitution set for one segment file name:
// `$Number$`/`$Time$`/`$Bandwidth$`/`$RepresentationID$`, each
// supporting a printf-style width specifier (`$Number%05d$`).
type TemplateVars struct {
	Number           uint32
	Time             uint64
	Bandwidth        uint32
	RepresentationID string
}

// ExpandTemplate substitutes TemplateVars into a segment_template
// string. A bare `$Number$` uses %d; `$Number%05d$` uses the given
// printf verb.
func ExpandTemplate(tmpl string, vars TemplateVars) string {
	out := tmpl
	out = expandVar(out, "Number", func(verb string) string { return fmt.Sprintf(verb, vars.Number) })
	out = expandVar(out, "Time", func(verb string) string { return fmt.Sprintf(verb, vars.Time) })
	out = expandVar(out, "Bandwidth", func(verb string) string { return fmt.Sprintf(verb, vars.Bandwidth) })
	out = expandVar(out, "RepresentationID", func(verb string) string {
		if verb == "%d" {
			return vars.RepresentationID
		}
		return fmt.Sprintf(verb, vars.RepresentationID)
	})
	out = strings.ReplaceAll(out, "$$", "$")
	return out
}

// expandVar replaces every `$name$` or `$name%<verb>$` occurrence of the
// named variable, calling render with the printf verb to use ("%d" when
// no width specifier was given).
func expandVar(s, name string, render func(verb string) string) string {
	marker := "$" + name
	for {
		start := strings.Index(s, marker)
		if start < 0 {
			return s
		}
		rest := s[start+len(marker):]
		end := strings.IndexByte(rest, '$')
		if end < 0 {
			return s
		}
		verbPart := rest[:end]
		verb := "%d"
		if strings.HasPrefix(verbPart, "%") {
			verb = verbPart
		}
		replacement := render(verb)
		s = s[:start] + replacement + rest[end+1:]
	}
}
