package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

// ParseEffects decodes the model's answer into descriptors.
//
// The answer must be a JSON object with an "effects" array, or the array
// itself, optionally wrapped in a ```json fence. Anything else is
// ErrExtractionFailed. Items that do not form a valid descriptor are skipped,
// but a non-empty array with no valid item is ErrExtractionFailed too.
func ParseEffects(text string) ([]effect.Descriptor, error) {
	body := stripFence(text)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: answer is not valid JSON", ErrExtractionFailed)
	}

	root := gjson.Parse(body)
	list := root
	if root.IsObject() {
		list = root.Get("effects")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: answer has no effects array", ErrExtractionFailed)
	}

	items := list.Array()
	out := make([]effect.Descriptor, 0, len(items))
	var lastErr error
	for i, item := range items {
		d, err := parseItem(item)
		if err != nil {
			slog.Warn("skipping extracted effect", "index", i, "err", err)
			lastErr = err
			continue
		}
		out = append(out, d)
	}
	if len(items) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %d effects is valid: %w", ErrExtractionFailed, len(items), lastErr)
	}
	return out, nil
}

func parseItem(item gjson.Result) (effect.Descriptor, error) {
	if !item.IsObject() {
		return effect.Descriptor{}, fmt.Errorf("%w: item is not an object", effect.ErrInvalidDescriptor)
	}

	kindRaw := first(item, "kind", "type").String()
	kind, known := effect.ParseKind(kindRaw)
	if !known {
		slog.Debug("unknown effect kind", "kind", kindRaw)
	}
	unit, _ := effect.ParseUnit(item.Get("unit").String())

	p := effect.Params{
		Name:            item.Get("name").String(),
		Kind:            kind,
		Magnitude:       first(item, "magnitude", "value").Float(),
		Unit:            unit,
		DurationSeconds: effect.Permanent,
		Stackable:       item.Get("stackable").Bool(),
		MaxStacks:       1,
		Condition:       first(item, "activationCondition", "condition").String(),
		Level:           int(item.Get("level").Int()),
	}
	if dur := first(item, "durationSeconds", "duration"); dur.Exists() && dur.Type != gjson.Null {
		p.DurationSeconds = dur.Float()
	}
	if stacks := item.Get("maxStacks"); stacks.Exists() && stacks.Type != gjson.Null {
		p.MaxStacks = int(stacks.Int())
	}
	return effect.New(p)
}

func first(item gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := item.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
