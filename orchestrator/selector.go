package orchestrator

import "strings"

// Selection is a selector's answer: which tool to call and with what arguments.
type Selection struct {
	Tool      string
	Arguments map[string]any
}

// Selector maps a free-form user intent to a tool call. Implementations may
// be as simple as keyword matching or as elaborate as an LLM router.
type Selector interface {
	Select(intent string, available []Binding) (Selection, bool)
}

// KeywordSelector routes intents by keyword. It is the default selector and
// keeps the orchestrator usable without any model in the loop.
type KeywordSelector struct{}

func NewKeywordSelector() *KeywordSelector { return &KeywordSelector{} }

func (s *KeywordSelector) Select(intent string, available []Binding) (Selection, bool) {
	lower := strings.ToLower(intent)

	offered := make(map[string]bool, len(available))
	for _, b := range available {
		offered[b.Tool.Name] = true
	}
	pick := func(tool string, args map[string]any) (Selection, bool) {
		if !offered[tool] {
			return Selection{}, false
		}
		if args == nil {
			args = map[string]any{}
		}
		return Selection{Tool: tool, Arguments: args}, true
	}

	switch {
	case strings.Contains(lower, "forecast"):
		args := map[string]any{"location": extractLocation(intent)}
		return pick("get_weather_forecast", args)
	case strings.Contains(lower, "alert"):
		args := map[string]any{"location": extractLocation(intent)}
		return pick("get_weather_alerts", args)
	case strings.Contains(lower, "weather") || strings.Contains(lower, "temperature"):
		args := map[string]any{"location": extractLocation(intent)}
		return pick("get_current_weather", args)
	case strings.Contains(lower, "meeting") || strings.Contains(lower, "schedule") ||
		strings.Contains(lower, "appointment"):
		return pick("schedule_meeting", nil)
	case strings.Contains(lower, "tables") || strings.Contains(lower, "database"):
		return pick("list_tables", nil)
	}
	return Selection{}, false
}

// extractLocation pulls "X" from phrasings like "weather in X" or
// "forecast for X". Falls back to the whole intent when no marker is found.
func extractLocation(intent string) string {
	lower := strings.ToLower(intent)
	for _, marker := range []string{" in ", " for ", " at "} {
		if i := strings.LastIndex(lower, marker); i >= 0 {
			loc := strings.TrimSpace(intent[i+len(marker):])
			loc = strings.TrimRight(loc, "?!.")
			if loc != "" {
				return loc
			}
		}
	}
	return strings.TrimRight(strings.TrimSpace(intent), "?!.")
}
