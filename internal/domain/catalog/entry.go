package catalog

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Entry is a single launchable app or game.
type Entry struct {
	ID        string   `json:"id"`
	AppName   string   `json:"appName"`
	URL       Location `json:"url,omitzero"`
	Icon      string   `json:"icon,omitempty"`
	Desc      string   `json:"desc,omitempty"`
	Disabled  bool     `json:"disabled,omitempty"`
	Local     bool     `json:"local,omitempty"`
	ProxyMode string   `json:"proxyMode,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// Location is an entry's url field, either a single string or a list of
// mirrors. The list form is kept on output.
type Location struct {
	URLs   []string
	IsList bool
}

// First returns the first url, or "" when there is none.
func (l Location) First() string {
	if len(l.URLs) == 0 {
		return ""
	}
	return l.URLs[0]
}

// IsZero reports whether the entry had no usable url field.
func (l Location) IsZero() bool {
	return len(l.URLs) == 0 && !l.IsList
}

// MarshalJSON renders the location in its source shape.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.IsList {
		urls := l.URLs
		if urls == nil {
			urls = []string{}
		}
		return json.Marshal(urls)
	}
	return json.Marshal(l.First())
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value and collapses every run of characters outside
// [a-z0-9] into a single dash. Empty results become "item".
func Slugify(value string) string {
	s := slugRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(value)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

// CreateID builds the stable id of an entry that has none.
func CreateID(section, category string, index int, appName string) string {
	return Slugify(section) + ":" + Slugify(category) + ":" + strconv.Itoa(index) + ":" + Slugify(appName)
}

// sanitizer strips markup from display text. Catalog files are edited by
// hand and rendered by the browser shell.
var sanitizer = bluemonday.StrictPolicy()

func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}

// normalizeEntry converts one decoded source value into an Entry. Values
// that are not objects yield an entry with only a generated name and id.
func normalizeEntry(raw any, section, category string, index int) Entry {
	item, _ := raw.(map[string]any)

	appName, _ := item["appName"].(string)
	if strings.TrimSpace(appName) == "" {
		appName = fmt.Sprintf("Game %d", index+1)
	}

	id := stringID(item["id"])
	if id == "" {
		id = CreateID(section, category, index, appName)
	}

	name := cleanText(appName)
	if name == "" {
		name = fmt.Sprintf("Game %d", index+1)
	}

	entry := Entry{
		ID:        id,
		AppName:   name,
		URL:       location(item["url"]),
		Icon:      str(item["icon"]),
		Desc:      cleanText(str(item["desc"])),
		Disabled:  truthy(item["disabled"]),
		Local:     truthy(item["local"]),
		ProxyMode: strings.TrimSpace(str(item["proxyMode"])),
		Category:  str(item["category"]),
	}
	if entry.Category == "" && section == "games" {
		entry.Category = category
	}
	return entry
}

func location(v any) Location {
	switch t := v.(type) {
	case string:
		return Location{URLs: []string{t}}
	case []any:
		loc := Location{IsList: true, URLs: make([]string, 0, len(t))}
		for _, u := range t {
			if s, ok := u.(string); ok {
				loc.URLs = append(loc.URLs, s)
			}
		}
		return loc
	case []string:
		return Location{IsList: true, URLs: t}
	default:
		return Location{}
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// stringID accepts ids written as strings or numbers. Zero and blank ids
// count as missing.
func stringID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	case uint64:
		if t == 0 {
			return ""
		}
		return strconv.FormatUint(t, 10)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// truthy follows the loose flag semantics of hand-written catalog files:
// true, non-zero numbers, non-empty strings and containers all count.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
