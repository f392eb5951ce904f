package catalog

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// Format identifies a source encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks a format from the extension of a file path or URL.
// Unknown extensions are treated as JSON.
func FormatOf(location string) Format {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// decode parses data into generic maps and slices.
func decode(data []byte, format Format) (any, error) {
	var v any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &v)
	case FormatTOML:
		err = toml.Unmarshal(data, &v)
	default:
		err = sonic.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return v, nil
}

// parseCatalog builds apps and games from a decoded source. Anything that
// is not shaped like a catalog yields empty sections. Categories follow
// order, then any category order does not name, sorted.
func parseCatalog(raw any, order []string) (apps []Entry, games map[string][]Entry, categories []string) {
	root, _ := raw.(map[string]any)

	rawApps, _ := root["apps"].([]any)
	apps = make([]Entry, 0, len(rawApps))
	for i, item := range rawApps {
		apps = append(apps, normalizeEntry(item, "apps", "apps", i))
	}

	rawGames, _ := root["games"].(map[string]any)
	games = make(map[string][]Entry, len(rawGames))
	for category, list := range rawGames {
		items, _ := list.([]any)
		entries := make([]Entry, 0, len(items))
		for i, item := range items {
			entries = append(entries, normalizeEntry(item, "games", category, i))
		}
		games[category] = entries
	}
	return apps, games, orderCategories(games, order)
}

func orderCategories(games map[string][]Entry, order []string) []string {
	categories := make([]string, 0, len(games))
	seen := make(map[string]bool, len(games))
	for _, category := range order {
		if _, ok := games[category]; ok && !seen[category] {
			seen[category] = true
			categories = append(categories, category)
		}
	}
	rest := make([]string, 0, len(games)-len(categories))
	for category := range games {
		if !seen[category] {
			rest = append(rest, category)
		}
	}
	sort.Strings(rest)
	return append(categories, rest...)
}

// gameOrder lists the keys of the games section in document order.
// Keys may repeat. A document it cannot read yields nil.
func gameOrder(data []byte, format Format) []string {
	switch format {
	case FormatYAML:
		return yamlGameOrder(data)
	case FormatTOML:
		return tomlGameOrder(data)
	default:
		return jsonGameOrder(data)
	}
}

func jsonGameOrder(data []byte) []string {
	node, err := sonic.Get(data, "games")
	if err != nil {
		return nil
	}
	var keys []string
	_ = node.ForEach(func(p ast.Sequence, _ *ast.Node) bool {
		if p.Key != nil {
			keys = append(keys, *p.Key)
		}
		return true
	})
	return keys
}

func yamlGameOrder(data []byte) []string {
	var doc struct {
		Games yaml.MapSlice `yaml:"games"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	keys := make([]string, 0, len(doc.Games))
	for _, item := range doc.Games {
		keys = append(keys, fmt.Sprint(item.Key))
	}
	return keys
}

// tomlGameOrder walks table headers and dotted keys, so both
// [[games.Action]] and [games] Action = [...] are seen.
func tomlGameOrder(data []byte) []string {
	var keys []string
	var table []string
	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = tomlKey(expr)
			keys = appendGameKey(keys, table)
		case unstable.KeyValue:
			full := append(append([]string{}, table...), tomlKey(expr)...)
			keys = appendGameKey(keys, full)
			if len(full) == 1 && full[0] == "games" && expr.Value().Kind == unstable.InlineTable {
				it := expr.Value().Children()
				for it.Next() {
					if it.Node().Kind == unstable.KeyValue {
						keys = appendGameKey(keys, append([]string{"games"}, tomlKey(it.Node())...))
					}
				}
			}
		}
	}
	if p.Error() != nil {
		return nil
	}
	return keys
}

func tomlKey(n *unstable.Node) []string {
	var parts []string
	it := n.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func appendGameKey(keys, path []string) []string {
	if len(path) >= 2 && path[0] == "games" {
		return append(keys, path[1])
	}
	return keys
}

// parseWhitelist accepts a bare array of domains or {"domains": [...]}.
func parseWhitelist(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		if root, isMap := raw.(map[string]any); isMap {
			list, _ = root["domains"].([]any)
		}
	}
	out := make([]string, 0, len(list))
	for _, d := range list {
		if s, ok := d.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
