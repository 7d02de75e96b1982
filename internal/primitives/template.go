package primitives

import (
	"fmt"
	"sort"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/models"
)

// Template names an algorithm family plus the prefix kind for keys generated
// from it.
type Template struct {
	Name   string
	Family string
	Kind   models.PrefixKind
}

var templates = map[string]Template{
	"AES256_GCM":     {Name: "AES256_GCM", Family: FamilyAESGCM, Kind: models.PrefixKeyed},
	"AES256_GCM_RAW": {Name: "AES256_GCM_RAW", Family: FamilyAESGCM, Kind: models.PrefixRaw},
	"AES256_SIV":     {Name: "AES256_SIV", Family: FamilyAESSIV, Kind: models.PrefixKeyed},
	"AES256_SIV_RAW": {Name: "AES256_SIV_RAW", Family: FamilyAESSIV, Kind: models.PrefixRaw},
}

// TemplateByName resolves a template name as used by the CLI and API.
func TemplateByName(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: unknown key template %q", internal.ErrInvalidConfiguration, name)
	}
	return t, nil
}

// TemplateNames returns the known template names, for help text.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
