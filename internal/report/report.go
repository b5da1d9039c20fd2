package report

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/zhangjyr/gocsv"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/analysis"
	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/statistics"
)

const (
	CDFFile      = "cdf.csv"
	SummaryFile  = "summary.csv"
	MachinesFile = "machines.csv"
	ManifestFile = "manifest.yaml"
)

// CDFRow is one point of an empirical CDF.
type CDFRow struct {
	Metric     string  `csv:"metric"`
	Group      string  `csv:"group"`
	Value      float64 `csv:"value"`
	Percentile float64 `csv:"percentile"`
}

type SummaryRow struct {
	Metric string  `csv:"metric"`
	Group  string  `csv:"group"`
	Count  int     `csv:"count"`
	Mean   float64 `csv:"mean"`
	StdDev float64 `csv:"stddev"`
	Min    float64 `csv:"min"`
	Median float64 `csv:"median"`
	Max    float64 `csv:"max"`
}

// MachineRow is one machine of the overlap report. Values that could not be computed are written as
// empty cells.
type MachineRow struct {
	Machine               string `csv:"machine"`
	TotalAttempts         int    `csv:"total_attempts"`
	CompleteAttempts      int    `csv:"complete_attempts"`
	PeakConcurrency       int    `csv:"peak_concurrency"`
	MakespanMinutes       string `csv:"makespan_minutes"`
	MeanAttemptMinutes    string `csv:"mean_attempt_minutes"`
	Capacity              string `csv:"capacity"`
	OversubscriptionRatio string `csv:"oversubscription_ratio"`
}

// Writer writes the outputs of one run into a directory.
type Writer struct {
	dir string

	logger   *zap.Logger
	sugarLog *zap.SugaredLogger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return &Writer{dir: dir, logger: logger, sugarLog: logger.Sugar()}
}

// Write writes every output file and returns their paths.
func (w *Writer) Write(rep *analysis.Report, manifest *Manifest) ([]string, error) {
	if err := os.MkdirAll(w.dir, os.ModePerm); err != nil {
		return nil, err
	}

	distributions := rep.Distributions()
	outputs := []struct {
		name string
		rows interface{}
	}{
		{name: CDFFile, rows: CDFRows(distributions)},
		{name: SummaryFile, rows: SummaryRows(distributions)},
		{name: MachinesFile, rows: MachineRows(rep.Machines)},
	}

	paths := make([]string, 0, len(outputs)+1)
	for _, output := range outputs {
		path := filepath.Join(w.dir, output.name)
		if err := writeCSV(path, output.rows); err != nil {
			w.logger.Error("Failed to write output.", zap.String("path", path), zap.Error(err))
			return paths, err
		}
		paths = append(paths, path)
	}

	manifest.Outputs = append(manifest.Outputs, paths...)
	manifestPath := filepath.Join(w.dir, ManifestFile)
	manifest.Outputs = append(manifest.Outputs, manifestPath)
	if err := WriteManifest(manifestPath, manifest); err != nil {
		w.logger.Error("Failed to write manifest.", zap.String("path", manifestPath), zap.Error(err))
		return paths, err
	}
	paths = append(paths, manifestPath)

	w.sugarLog.Infof("Wrote %d output file(s) to \"%s\".", len(paths), w.dir)
	return paths, nil
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.MarshalFile(rows, file)
}

// CDFRows lists the CDF points of every distribution with enough samples to have one.
func CDFRows(distributions []*analysis.Distribution) []*CDFRow {
	rows := make([]*CDFRow, 0)
	for _, dist := range distributions {
		if !dist.HasCDF() {
			continue
		}
		values, percentiles := statistics.EmpiricalCDF(dist.Samples)
		for i := range values {
			rows = append(rows, &CDFRow{Metric: dist.Metric, Group: dist.Group, Value: values[i], Percentile: percentiles[i]})
		}
	}
	return rows
}

// SummaryRows lists one summary per distribution, including the empty ones.
func SummaryRows(distributions []*analysis.Distribution) []*SummaryRow {
	rows := make([]*SummaryRow, 0, len(distributions))
	for _, dist := range distributions {
		rows = append(rows, &SummaryRow{
			Metric: dist.Metric,
			Group:  dist.Group,
			Count:  dist.Summary.Count,
			Mean:   dist.Summary.Mean,
			StdDev: dist.Summary.StdDev,
			Min:    dist.Summary.Min,
			Median: dist.Summary.Median,
			Max:    dist.Summary.Max,
		})
	}
	return rows
}

func MachineRows(machines []*overlap.MachineSummary) []*MachineRow {
	rows := make([]*MachineRow, 0, len(machines))
	for _, machine := range machines {
		row := &MachineRow{
			Machine:               machine.Machine,
			TotalAttempts:         machine.TotalAttempts,
			CompleteAttempts:      machine.CompleteAttempts,
			PeakConcurrency:       machine.PeakConcurrency,
			MakespanMinutes:       formatOptional(machine.Makespan),
			MeanAttemptMinutes:    formatOptional(machine.MeanAttemptLength),
			OversubscriptionRatio: formatOptional(machine.OversubscriptionRatio),
		}
		if machine.Capacity != nil {
			row.Capacity = strconv.Itoa(*machine.Capacity)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
