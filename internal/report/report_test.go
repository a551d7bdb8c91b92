package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geostats-cli/internal/artifact"
	"github.com/sells-group/geostats-cli/internal/stats"
)

func sampleStatistics() *artifact.Statistics {
	agg := stats.New(0)
	for _, o := range []stats.Observation{
		{NeighborhoodKey: "CENTRO", NeighborhoodLabel: "Centro", SectionKey: "14", SectionLabel: float64(14), Month: "marzo", Type: "Bache", Status: "Abierto"},
		{NeighborhoodKey: "CENTRO", NeighborhoodLabel: "centro", SectionKey: "14", SectionLabel: "14", Month: "enero", Type: "Luz", Status: "Cerrado"},
		{NeighborhoodKey: "ROMA", NeighborhoodLabel: "Roma", SectionKey: "15", SectionLabel: "15", Month: "sin_mes", Type: "Bache", Status: "Cerrado"},
	} {
		agg.Seen()
		agg.Valid()
		agg.Record(o)
	}
	months, types, statuses := agg.Values.Sorted()

	return &artifact.Statistics{
		Meta: artifact.Meta{
			RunID:       "run-1",
			GeneratedAt: "2024-05-01T16:30:00.000000Z",
			Source:      "Solicitudes.geojson",
			Records:     3,
			Coords:      agg.Coords,
		},
		Values:    artifact.Values{Month: months, Type: types, Status: statuses},
		Global:    agg.Global,
		Colonias:  agg.Neighborhoods,
		Secciones: agg.Sections,
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "estadisticas.xlsx")
	require.NoError(t, Write(path, sampleStatistics()))

	summary, err := ReadSheet(path, SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ejecución", "run-1"}, summary[0])
	assert.Equal(t, []string{"Registros", "3"}, summary[3])

	colonias, err := ReadSheet(path, SheetNeighborhoods)
	require.NoError(t, err)
	require.Len(t, colonias, 3)
	assert.Equal(t, []string{"Clave", "Nombre", "Total", "Bache", "Luz"}, colonias[0])
	assert.Equal(t, []string{"CENTRO", "Centro", "2", "1", "1"}, colonias[1])
	assert.Equal(t, []string{"ROMA", "Roma", "1", "1", "0"}, colonias[2])

	secciones, err := ReadSheet(path, SheetSections)
	require.NoError(t, err)
	assert.Equal(t, []string{"14", "14", "2", "1", "1"}, secciones[1])

	meses, err := ReadSheet(path, SheetMonths)
	require.NoError(t, err)
	require.Len(t, meses, 4)
	assert.Equal(t, []string{"Mes", "Total", "Abierto", "Cerrado"}, meses[0])
	assert.Equal(t, []string{"enero", "1", "0", "1"}, meses[1])
	assert.Equal(t, []string{"marzo", "1", "1", "0"}, meses[2])
	assert.Equal(t, []string{"sin_mes", "1", "0", "1"}, meses[3])
}

func TestReadSheet_Errors(t *testing.T) {
	_, err := ReadSheet(filepath.Join(t.TempDir(), "missing.xlsx"), SheetSummary)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "estadisticas.xlsx")
	require.NoError(t, Write(path, sampleStatistics()))
	_, err = ReadSheet(path, "Nope")
	assert.Error(t, err)
}
