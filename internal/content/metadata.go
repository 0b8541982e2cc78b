package content

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	MetaErrorKey = "__meta_error"
	MetaRawKey   = "__raw"
)

// ParseMetadata accepts free-form JSON from the authoring form. Input that is
// not a JSON object is kept verbatim under an error marker instead of failing
// the save.
func ParseMetadata(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return map[string]any{MetaErrorKey: err.Error(), MetaRawKey: raw}
	}
	object, ok := parsed.(map[string]any)
	if !ok {
		return map[string]any{MetaErrorKey: "metadata must be a JSON object", MetaRawKey: raw}
	}
	return object
}

// FormatMetadata renders metadata back into the authoring textarea; a stored
// error marker gives back the raw text the author typed.
func FormatMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	if _, failed := meta[MetaErrorKey]; failed {
		if raw, ok := meta[MetaRawKey].(string); ok {
			return raw
		}
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// AbilityModifier is the standard floor((score-10)/2).
func AbilityModifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}
