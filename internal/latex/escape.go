package latex

import "strings"

// escaper neutralizes every character LaTeX treats specially in text
// mode. A single pass keeps the replacement braces from being escaped
// again.
var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Escape makes an arbitrary string, configuration keys and metric
// names included, safe to splice into LaTeX text.
func Escape(s string) string {
	return escaper.Replace(s)
}
