package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sproutbook/seedscan/internal/model"
)

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}

// firstBalancedObject returns the first top-level {...} substring,
// tracking string literals so braces inside values do not confuse the
// depth count. Returns "" when no balanced object exists.
func firstBalancedObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// ParseRecord leniently decodes model output into a record. Missing
// keys become zero values; the second return is false only when no JSON
// object could be recovered at all.
func ParseRecord(text string) (*model.ExtractedRecord, bool) {
	raw, ok := parseObject(text)
	if !ok {
		return nil, false
	}

	rec := &model.ExtractedRecord{
		Vendor:         str(raw, "vendor"),
		PlantType:      str(raw, "plant_type"),
		Variety:        str(raw, "variety"),
		ScientificName: str(raw, "scientific_name"),
		Tags:           strs(raw, "tags"),
		HeroImageURL:   str(raw, "hero_image_url", "image_url", "image"),
		SourceURL:      str(raw, "source_url"),
	}

	specs, _ := raw["growing_specs"].(map[string]any)
	if specs == nil {
		// Some responses flatten the growing_specs keys to the top level.
		specs = raw
	}
	rec.Specs = model.GrowingSpecs{
		SowingDepth:       str(specs, "sowing_depth"),
		Spacing:           str(specs, "spacing"),
		Sun:               str(specs, "sun", "sun_requirement"),
		DaysToGermination: str(specs, "days_to_germination"),
		DaysToMaturity:    str(specs, "days_to_maturity", "harvest_days"),
		Water:             str(specs, "water"),
		Description:       str(specs, "description"),
	}

	return rec, true
}

// ParseImageAnswer decodes a {"hero_image_url": ...} reply.
func ParseImageAnswer(text string) string {
	raw, ok := parseObject(text)
	if !ok {
		return ""
	}
	return str(raw, "hero_image_url", "image_url", "image", "url")
}

func parseObject(text string) (map[string]any, bool) {
	cleaned := cleanJSON(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return raw, true
	}

	obj := firstBalancedObject(cleaned)
	if obj == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// str returns the first present key as a trimmed string. Numbers are
// formatted rather than discarded since models sometimes return bare
// numerics for fields we treat as text.
func str(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" && !strings.EqualFold(s, "null") {
				return s
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func strs(raw map[string]any, key string) []string {
	switch v := raw[key].(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case string:
		// A comma-joined string instead of an array.
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}
