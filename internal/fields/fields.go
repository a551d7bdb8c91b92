// Package fields resolves which property names carry each role (neighborhood,
// section, type, status, month, date) in the input files.
package fields

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrUnresolved is returned when a required role matches no property.
var ErrUnresolved = eris.New("fields: required columns not found")

// Candidates lists, per role, the property names tried in order.
type Candidates struct {
	Neighborhood []string `yaml:"neighborhood"`
	Name         []string `yaml:"name"`
	Section      []string `yaml:"section"`
	Type         []string `yaml:"type"`
	Status       []string `yaml:"status"`
	Month        []string `yaml:"month"`
	Date         []string `yaml:"date"`

	// Label fields of the reference layers.
	NeighborhoodJoin   []string `yaml:"neighborhood_join"`
	NeighborhoodEnrich []string `yaml:"neighborhood_enrich"`
	SectionEnrich      []string `yaml:"section_enrich"`
}

// Defaults returns the built-in candidate lists.
func Defaults() Candidates {
	return Candidates{
		Neighborhood:       []string{"Colonia", "COLONIA", "colonia", "name", "NOMBRE"},
		Name:               []string{"name", "NAME", "Name"},
		Section:            []string{"seccion", "SECCION", "Seccion", "SECCIÓN"},
		Type:               []string{"Tipo de reporte", "Tipo de Reporte", "tipo", "TIPO", "Tipo"},
		Status:             []string{"Estado Reporte", "Estado reporte", "Estado", "ESTADO", "estado"},
		Month:              []string{"mes", "Mes", "MES"},
		Date:               []string{"Fecha reporte", "Fecha Reporte", "Fecha", "FECHA"},
		NeighborhoodJoin:   []string{"NOMBRE", "Nombre", "nombre", "name", "NAME"},
		NeighborhoodEnrich: []string{"NOMBRE", "name", "Nombre", "COLONIA", "Colonia"},
		SectionEnrich:      []string{"seccion", "SECCION", "Seccion", "SECCIÓN"},
	}
}

// LoadCandidates reads candidate lists from a YAML file with a top-level
// "fields" key. Roles left empty keep their defaults.
func LoadCandidates(path string) (Candidates, error) {
	def := Defaults()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Candidates{}, eris.Wrapf(err, "fields: read candidates %s", path)
	}

	var wrapper struct {
		Fields Candidates `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Candidates{}, eris.Wrap(err, "fields: parse candidates")
	}

	c := wrapper.Fields
	fill(&c.Neighborhood, def.Neighborhood)
	fill(&c.Name, def.Name)
	fill(&c.Section, def.Section)
	fill(&c.Type, def.Type)
	fill(&c.Status, def.Status)
	fill(&c.Month, def.Month)
	fill(&c.Date, def.Date)
	fill(&c.NeighborhoodJoin, def.NeighborhoodJoin)
	fill(&c.NeighborhoodEnrich, def.NeighborhoodEnrich)
	fill(&c.SectionEnrich, def.SectionEnrich)
	return c, nil
}

func fill(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = def
	}
}

// Mapping is the resolved property name per role. Empty means absent.
type Mapping struct {
	Neighborhood string `json:"colonia"`
	Name         string `json:"name,omitempty"`
	Section      string `json:"seccion"`
	Type         string `json:"tipo"`
	Status       string `json:"estado"`
	Month        string `json:"mes"`
	Date         string `json:"fecha"`
}

// Find returns the first candidate present as a key of props.
func Find(props map[string]any, candidates []string) string {
	for _, c := range candidates {
		if _, ok := props[c]; ok {
			return c
		}
	}
	return ""
}

// Resolve builds the Mapping for a sample of properties. Non-empty fields
// of overrides are used as given. Neighborhood, section, type and status
// are required.
func Resolve(sample map[string]any, c Candidates, overrides Mapping) (Mapping, error) {
	m := Mapping{
		Neighborhood: pick(overrides.Neighborhood, sample, c.Neighborhood),
		Name:         pick(overrides.Name, sample, c.Name),
		Section:      pick(overrides.Section, sample, c.Section),
		Type:         pick(overrides.Type, sample, c.Type),
		Status:       pick(overrides.Status, sample, c.Status),
		Month:        pick(overrides.Month, sample, c.Month),
		Date:         pick(overrides.Date, sample, c.Date),
	}

	var missing []string
	for role, v := range map[string]string{
		"colonia": m.Neighborhood,
		"seccion": m.Section,
		"tipo":    m.Type,
		"estado":  m.Status,
	} {
		if v == "" {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return m, eris.Wrapf(ErrUnresolved, "fields: missing %s (available: %s)",
			strings.Join(missing, ", "), strings.Join(Columns(sample), ", "))
	}
	return m, nil
}

func pick(override string, sample map[string]any, candidates []string) string {
	if override != "" {
		return override
	}
	return Find(sample, candidates)
}

// Columns returns the sorted property names of props.
func Columns(props map[string]any) []string {
	out := make([]string, 0, len(props))
	for k := range props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
