// Package report renders a statistics document as a spreadsheet.
package report

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/geostats-cli/internal/artifact"
	"github.com/sells-group/geostats-cli/internal/month"
	"github.com/sells-group/geostats-cli/internal/normalize"
	"github.com/sells-group/geostats-cli/internal/stats"
)

// Sheet names, in workbook order.
const (
	SheetSummary       = "Resumen"
	SheetNeighborhoods = "Colonias"
	SheetSections      = "Secciones"
	SheetMonths        = "Meses"
)

// Write renders s into an xlsx workbook at path.
func Write(path string, s *artifact.Statistics) error {
	f := xlsx.NewFile()

	if err := addSummary(f, s); err != nil {
		return err
	}
	if err := addGroup(f, SheetNeighborhoods, s.Colonias, s.Values.Type); err != nil {
		return err
	}
	if err := addGroup(f, SheetSections, s.Secciones, s.Values.Type); err != nil {
		return err
	}
	if err := addMonths(f, s); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addSummary(f *xlsx.File, s *artifact.Statistics) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	m := s.Meta
	textRow(sheet, "Ejecución", m.RunID)
	textRow(sheet, "Generado", m.GeneratedAt)
	textRow(sheet, "Fuente", m.Source)
	intRow(sheet, "Registros", m.Records)
	intRow(sheet, "Colonias actualizadas", m.Updated)
	intRow(sheet, "Sobrescritas por nombre", m.Overridden)
	intRow(sheet, "Solicitudes", m.Coords.Total)
	intRow(sheet, "Con coordenadas", m.Coords.WithCoords)
	intRow(sheet, "Sin coordenadas", m.Coords.Missing)
	intRow(sheet, "Coordenadas inválidas", m.Coords.Invalid)
	intRow(sheet, "Vialidades primarias", m.Vialidades.Primarias)
	intRow(sheet, "Vialidades locales", m.Vialidades.Locales)
	intRow(sheet, "Intersecciones", m.Vialidades.Intersecciones)
	intRow(sheet, "Error de coordenadas", m.Vialidades.ErrorCoords)
	return nil
}

// addGroup writes one row per entity: key, label, total and the count of
// each type.
func addGroup(f *xlsx.File, name string, g stats.Group, types []string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, h := range append([]string{"Clave", "Nombre", "Total"}, types...) {
		header.AddCell().SetString(h)
	}

	for _, key := range g.Keys() {
		e := g[key]
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(normalize.Text(e.Label))
		row.AddCell().SetInt(e.Total)
		for _, typ := range types {
			row.AddCell().SetInt(e.Type[typ])
		}
	}
	return nil
}

// addMonths writes the global count per month in calendar order, with one
// column per status.
func addMonths(f *xlsx.File, s *artifact.Statistics) error {
	sheet, err := f.AddSheet(SheetMonths)
	if err != nil {
		return eris.Wrap(err, "report: add months sheet")
	}

	header := sheet.AddRow()
	for _, h := range append([]string{"Mes", "Total"}, s.Values.Status...) {
		header.AddCell().SetString(h)
	}

	months := append(month.Names[:], normalize.NoMonth)
	for _, name := range months {
		total, ok := s.Global.Month[name]
		if !ok {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetInt(total)
		for _, status := range s.Values.Status {
			row.AddCell().SetInt(s.Global.MonthStatus[stats.Join(name, status)])
		}
	}
	return nil
}

func textRow(sheet *xlsx.Sheet, label, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(value)
}

func intRow(sheet *xlsx.Sheet, label string, value int) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetInt(value)
}

// ReadSheet returns the rows of the named sheet as strings.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open file")
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("report: sheet %q not found", name)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
