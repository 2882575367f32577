package exporter

import (
	"log/slog"
	"strings"

	"dessertcpi/internal/analysis"
	"dessertcpi/internal/evaluation"
	"dessertcpi/internal/fixedeffects"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/macro"
)

// Key column headers.
const (
	HeaderDistrict = "district"
	HeaderYear     = "year"
	HeaderQuarter  = "quarter"
)

// Exporter writes the pipeline's tables.
type Exporter struct {
	csv *CSVWriter
}

// New creates an exporter rooted at baseDir.
func New(baseDir string, logger *slog.Logger) *Exporter {
	return &Exporter{csv: NewCSVWriter(baseDir, logger)}
}

// WriteFrame writes a panel with district, year and quarter followed by
// every column in frame order.
func (e *Exporter) WriteFrame(path string, f *frame.Frame) error {
	cols := f.Columns()
	headers := append([]string{HeaderDistrict, HeaderYear, HeaderQuarter}, cols...)
	s, err := e.csv.CreateStreamWriter(path, headers)
	if err != nil {
		return err
	}
	data := make([][]float64, len(cols))
	for j, c := range cols {
		data[j] = f.MustColumn(c)
	}
	rec := make([]string, len(headers))
	for i := 0; i < f.Len(); i++ {
		k := f.Key(i)
		rec[0], rec[1], rec[2] = k.Entity, formatInt(k.Year), formatInt(k.Quarter)
		for j := range cols {
			rec[3+j] = formatFloat(data[j][i])
		}
		if err := s.WriteRecord(rec); err != nil {
			s.Close()
			return err
		}
	}
	return s.Close()
}

// WriteQuarterly writes a nationwide frame keyed by quarter only.
func (e *Exporter) WriteQuarterly(path string, f *frame.Frame) error {
	cols := f.Columns()
	headers := append([]string{HeaderYear, HeaderQuarter}, cols...)
	records := make([][]string, f.Len())
	for i := range records {
		k := f.Key(i)
		rec := []string{formatInt(k.Year), formatInt(k.Quarter)}
		for _, c := range cols {
			rec = append(rec, formatFloat(f.Value(c, i)))
		}
		records[i] = rec
	}
	return e.csv.WriteSimpleCSV(path, headers, records)
}

// WriteMacro writes the quarterly macro table.
func (e *Exporter) WriteMacro(path string, t *macro.Table) error {
	return e.WriteQuarterly(path, t.Frame())
}

// WriteCoefficients writes the fixed-effects summary table.
func (e *Exporter) WriteCoefficients(path string, coefs []fixedeffects.Coefficient) error {
	records := make([][]string, len(coefs))
	for i, c := range coefs {
		records[i] = []string{c.Name, formatFloat(c.Coef), formatFloat(c.StdErr), formatFloat(c.PValue), c.Significance}
	}
	return e.csv.WriteSimpleCSV(path, []string{"variable", "coef", "std_err", "p_value", "significance"}, records)
}

// WriteComparison writes holdout scores, one row per model.
func (e *Exporter) WriteComparison(path string, rows []evaluation.ComparisonRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.Model, formatFloat(r.RMSE), formatFloat(r.MAE), formatFloat(r.R2),
			formatInt(r.TrainRows), formatInt(r.TestRows), strings.Join(r.Features, ";"),
		}
	}
	return e.csv.WriteSimpleCSV(path,
		[]string{"model", "rmse", "mae", "r2", "train_rows", "test_rows", "features"}, records)
}

// WriteRolling writes a rolling table including its mean and std rows.
func (e *Exporter) WriteRolling(path string, t evaluation.RollingTable) error {
	records := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		records[i] = []string{
			r.Model, r.Label, formatInt(r.TestYear), formatInts(r.TrainYears),
			formatInt(r.TrainRows), formatInt(r.TestRows),
			formatFloat(r.RMSE), formatFloat(r.MAE), formatFloat(r.R2),
		}
		if r.IsSummary() {
			records[i][2] = ""
		}
	}
	return e.csv.WriteSimpleCSV(path,
		[]string{"model", "fold", "test_year", "train_years", "train_rows", "test_rows", "rmse", "mae", "r2"}, records)
}

// WriteVIF writes variance inflation factors.
func (e *Exporter) WriteVIF(path string, rows []analysis.VIFRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{r.Feature, formatFloat(r.VIF), formatBool(r.High)}
	}
	return e.csv.WriteSimpleCSV(path, []string{"feature", "vif", "high"}, records)
}

// WriteCorrelation writes a square correlation matrix with row labels.
func (e *Exporter) WriteCorrelation(path string, m analysis.Matrix) error {
	headers := append([]string{""}, m.Names...)
	records := make([][]string, len(m.Names))
	for i, name := range m.Names {
		rec := []string{name}
		for _, v := range m.Values[i] {
			rec = append(rec, formatFloat(v))
		}
		records[i] = rec
	}
	return e.csv.WriteSimpleCSV(path, headers, records)
}
