package layoutml

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// sanitize tolerates the usual drift between model servers before schema
// validation:
//   - page/content synonyms renamed to page_number/text
//   - numeric strings coerced for page_number, numbers coerced to strings in cells
//   - null tables/title dropped, null text becomes ""
//   - confidences reported on a 0..100 scale rescaled to 0..1
//
// It returns the rewritten JSON and a list of the adjustments made.
func sanitize(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	var notes []string

	for _, k := range []string{"tables", "title", "confidence"} {
		if v, ok := m[k]; ok && v == nil {
			delete(m, k)
			notes = append(notes, k+"(null)")
		}
	}

	if pages, ok := m["pages"].([]any); ok {
		for i, p := range pages {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if rename(pm, "page", "page_number") || rename(pm, "number", "page_number") {
				notes = append(notes, fmt.Sprintf("pages[%d].page_number", i))
			}
			if rename(pm, "content", "text") {
				notes = append(notes, fmt.Sprintf("pages[%d].text", i))
			}
			if coerceInt(pm, "page_number") {
				notes = append(notes, fmt.Sprintf("pages[%d].page_number(string)", i))
			}
			if v, ok := pm["text"]; ok && v == nil {
				pm["text"] = ""
			}
		}
	}

	if tables, ok := m["tables"].([]any); ok {
		for _, t := range tables {
			tm, ok := t.(map[string]any)
			if !ok {
				continue
			}
			rename(tm, "page", "page_number")
			coerceInt(tm, "page_number")
			rows, _ := tm["rows"].([]any)
			for _, r := range rows {
				cells, _ := r.([]any)
				for j, c := range cells {
					switch v := c.(type) {
					case nil:
						cells[j] = ""
					case float64:
						cells[j] = strconv.FormatFloat(v, 'f', -1, 64)
					case bool:
						cells[j] = strconv.FormatBool(v)
					}
				}
			}
		}
	}

	if c, ok := m["confidence"].(float64); ok && c > 1 && c <= 100 {
		m["confidence"] = c / 100
		notes = append(notes, "confidence(percent)")
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, notes, nil
}

func rename(m map[string]any, from, to string) bool {
	v, ok := m[from]
	if !ok {
		return false
	}
	if _, exists := m[to]; !exists {
		m[to] = v
	}
	delete(m, from)
	return true
}

func coerceInt(m map[string]any, k string) bool {
	s, ok := m[k].(string)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	m[k] = n
	return true
}
