// Package catalog loads the fixed card template catalogue.
//
// Templates name palette tokens per colour role. Every token is resolved to a
// concrete colour when the catalogue is parsed, so an unknown token or a
// missing role is a load error rather than a rendering surprise.
package catalog

import (
	_ "embed"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-idcard/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type fileTemplate struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Dark   bool              `yaml:"dark"`
	Colors map[string]string `yaml:"colors"`
}

type file struct {
	Fallback  string            `yaml:"fallback"`
	Palette   map[string]string `yaml:"palette"`
	Templates []fileTemplate    `yaml:"templates"`
}

// Catalog is the validated, immutable template catalogue.
type Catalog struct {
	templates []models.Template
	index     map[string]int
	fallback  int
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a catalogue document.
func Parse(data []byte) (*Catalog, error) {
	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("catalogue has no templates")
	}

	palette := make(map[string]color.RGBA, len(doc.Palette))
	for name, hex := range doc.Palette {
		c, err := parseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("palette token %q: %w", name, err)
		}
		palette[name] = c
	}

	cat := &Catalog{
		templates: make([]models.Template, 0, len(doc.Templates)),
		index:     make(map[string]int, len(doc.Templates)),
		fallback:  -1,
	}
	for _, ft := range doc.Templates {
		id := strings.TrimSpace(ft.ID)
		if id == "" {
			return nil, fmt.Errorf("template without id")
		}
		if _, dup := cat.index[id]; dup {
			return nil, fmt.Errorf("duplicate template id %q", id)
		}
		roles, err := resolveRoles(ft.Colors, doc.Palette, palette)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", id, err)
		}
		name := ft.Name
		if name == "" {
			name = id
		}
		cat.index[id] = len(cat.templates)
		cat.templates = append(cat.templates, models.Template{
			ID:          id,
			DisplayName: name,
			Dark:        ft.Dark,
			Colors:      roles,
		})
	}

	idx, ok := cat.index[strings.TrimSpace(doc.Fallback)]
	if !ok {
		return nil, fmt.Errorf("fallback template %q not in catalogue", doc.Fallback)
	}
	cat.fallback = idx
	return cat, nil
}

// List returns the templates in catalogue order.
func (c *Catalog) List() []models.Template {
	out := make([]models.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Find looks up a template by id.
func (c *Catalog) Find(id string) (models.Template, bool) {
	idx, ok := c.index[id]
	if !ok {
		return models.Template{}, false
	}
	return c.templates[idx], true
}

// Fallback returns the designated default template.
func (c *Catalog) Fallback() models.Template {
	return c.templates[c.fallback]
}

func resolveRoles(colors map[string]string, names map[string]string, palette map[string]color.RGBA) (models.ColorRoles, error) {
	known := make(map[string]struct{}, len(models.AllColorRoles))
	resolved := make(map[models.ColorRole]models.ColorToken, len(models.AllColorRoles))
	for _, role := range models.AllColorRoles {
		known[string(role)] = struct{}{}
		tokenName, ok := colors[string(role)]
		if !ok || tokenName == "" {
			return models.ColorRoles{}, fmt.Errorf("missing colour role %q", role)
		}
		rgba, ok := palette[tokenName]
		if !ok {
			return models.ColorRoles{}, fmt.Errorf("role %q uses unknown token %q", role, tokenName)
		}
		resolved[role] = models.ColorToken{Name: tokenName, Hex: strings.ToLower(names[tokenName]), RGBA: rgba}
	}
	for role := range colors {
		if _, ok := known[role]; !ok {
			return models.ColorRoles{}, fmt.Errorf("unknown colour role %q", role)
		}
	}
	return models.ColorRoles{
		Primary:      resolved[models.RolePrimary],
		Secondary:    resolved[models.RoleSecondary],
		Accent:       resolved[models.RoleAccent],
		Text:         resolved[models.RoleText],
		Surface:      resolved[models.RoleSurface],
		Alert:        resolved[models.RoleAlert],
		AlertSurface: resolved[models.RoleAlertSurface],
	}, nil
}

func parseHex(raw string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("want #rrggbb, got %q", raw)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("want #rrggbb, got %q", raw)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
