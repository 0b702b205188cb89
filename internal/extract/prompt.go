package extract

import (
	"strings"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

const promptHeader = `Extract every combat effect from the talent text below.
Answer with JSON only, shaped as {"effects":[...]}. Each effect has:
  name (string), kind (one of: %KINDS%), magnitude (number),
  unit ("percentage" | "count" | "seconds"), durationSeconds (number, -1 if permanent),
  stackable (bool), maxStacks (int >= 1), activationCondition (string, optional),
  level (1-6, only when the text lists values per level).
Use "unknown" for effects that fit no kind. Answer {"effects":[]} when there are none.
`

// BuildPrompt renders the instruction and the expanded talent text for req.
func BuildPrompt(req Request) string {
	kinds := make([]string, 0, len(effect.Kinds()))
	for _, k := range effect.Kinds() {
		kinds = append(kinds, k.String())
	}

	var b strings.Builder
	b.WriteString(strings.Replace(promptHeader, "%KINDS%", strings.Join(kinds, ", "), 1))
	if s := req.Subject; s != nil {
		b.WriteString("\nCharacter: ")
		b.WriteString(s.Name)
		if s.ElementTag != "" {
			b.WriteString(" (element: ")
			b.WriteString(s.ElementTag)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nText:\n")
	b.WriteString(req.Expand())
	b.WriteString("\n")
	return b.String()
}
