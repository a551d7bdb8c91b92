package fields

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Defaults(t *testing.T) {
	sample := map[string]any{
		"Colonia":         "Centro",
		"name":            nil,
		"SECCION":         "14",
		"Tipo de reporte": "Bache",
		"Estado":          "Abierto",
		"Fecha reporte":   "2024-03-15",
	}

	m, err := Resolve(sample, Defaults(), Mapping{})
	require.NoError(t, err)
	assert.Equal(t, Mapping{
		Neighborhood: "Colonia",
		Name:         "name",
		Section:      "SECCION",
		Type:         "Tipo de reporte",
		Status:       "Estado",
		Date:         "Fecha reporte",
	}, m)
}

func TestResolve_CandidateOrder(t *testing.T) {
	// "name" is also a neighborhood candidate but ranks after "colonia".
	sample := map[string]any{"name": "x", "colonia": "y", "seccion": 1, "tipo": "t", "estado": "e"}
	m, err := Resolve(sample, Defaults(), Mapping{})
	require.NoError(t, err)
	assert.Equal(t, "colonia", m.Neighborhood)
	assert.Equal(t, "name", m.Name)
}

func TestResolve_OverridesWin(t *testing.T) {
	sample := map[string]any{"Colonia": "a", "seccion": 1, "tipo": "t", "estado": "e", "MES": "enero"}
	m, err := Resolve(sample, Defaults(), Mapping{Neighborhood: "Barrio", Month: "Periodo"})
	require.NoError(t, err)
	assert.Equal(t, "Barrio", m.Neighborhood)
	assert.Equal(t, "Periodo", m.Month)
	assert.Equal(t, "seccion", m.Section)
}

func TestResolve_MissingRequired(t *testing.T) {
	sample := map[string]any{"Colonia": "a", "tipo": "t"}
	_, err := Resolve(sample, Defaults(), Mapping{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "estado, seccion")
	assert.Contains(t, err.Error(), "Colonia, tipo")
}

func TestLoadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fields:
  neighborhood: ["Barrio", "Colonia"]
  status: ["Situacion"]
`), 0o644))

	c, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Barrio", "Colonia"}, c.Neighborhood)
	assert.Equal(t, []string{"Situacion"}, c.Status)
	assert.Equal(t, Defaults().Type, c.Type)
	assert.Equal(t, Defaults().SectionEnrich, c.SectionEnrich)
}

func TestLoadCandidates_EmptyPath(t *testing.T) {
	c, err := LoadCandidates("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadCandidates_Errors(t *testing.T) {
	_, err := LoadCandidates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [unclosed"), 0o644))
	_, err = LoadCandidates(path)
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	props := map[string]any{"NOMBRE": "Centro", "name": "x"}
	assert.Equal(t, "NOMBRE", Find(props, Defaults().NeighborhoodJoin))
	assert.Equal(t, "NOMBRE", Find(props, Defaults().NeighborhoodEnrich))
	assert.Empty(t, Find(props, Defaults().SectionEnrich))
	assert.Empty(t, Find(nil, []string{"a"}))
}
