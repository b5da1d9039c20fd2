package loader

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// GPURecord is one row of the per-GPU utilization CSV. Unrecorded slots are left empty at the end of
// the row.
type GPURecord struct {
	Timestamp tracetime.Text `csv:"time"`
	MachineID string         `csv:"machineId"`
	GPU0      string         `csv:"gpu0_util"`
	GPU1      string         `csv:"gpu1_util"`
	GPU2      string         `csv:"gpu2_util"`
	GPU3      string         `csv:"gpu3_util"`
	GPU4      string         `csv:"gpu4_util"`
	GPU5      string         `csv:"gpu5_util"`
	GPU6      string         `csv:"gpu6_util"`
	GPU7      string         `csv:"gpu7_util"`
}

func (r *GPURecord) GetTS() time.Time {
	return r.Timestamp.Time
}

func (r *GPURecord) GetMachine() string {
	return r.MachineID
}

func (r *GPURecord) Reset() {
	*r = GPURecord{}
}

// Readings returns one reading per recorded slot. Trailing empty cells are not part of the row; an
// empty cell followed by a recorded one is malformed.
func (r *GPURecord) Readings() ([]utilization.Reading, error) {
	cells := []string{r.GPU0, r.GPU1, r.GPU2, r.GPU3, r.GPU4, r.GPU5, r.GPU6, r.GPU7}

	recorded := len(cells)
	for recorded > 0 && strings.TrimSpace(cells[recorded-1]) == "" {
		recorded--
	}

	readings := make([]utilization.Reading, recorded)
	for slot := 0; slot < recorded; slot++ {
		reading, err := utilization.ParseReading(cells[slot])
		if err != nil {
			return nil, domain.Errorf(domain.ErrFormat, "machine %s gpu%d: %v", r.MachineID, slot, err)
		}
		readings[slot] = reading
	}
	return readings, nil
}

// CPURecord is one row of the host CPU utilization CSV.
type CPURecord struct {
	Timestamp tracetime.Text `csv:"time"`
	MachineID string         `csv:"machine_id"`
	CPUUtil   string         `csv:"cpu_util"`
}

func (r *CPURecord) GetTS() time.Time {
	return r.Timestamp.Time
}

func (r *CPURecord) GetMachine() string {
	return r.MachineID
}

func (r *CPURecord) Reset() {
	*r = CPURecord{}
}

func (r *CPURecord) Reading() (utilization.Reading, error) {
	return parseHostCell(r.CPUUtil)
}

// MemoryRecord is one row of the host memory CSV. Used memory is derived from total and free.
type MemoryRecord struct {
	Timestamp tracetime.Text `csv:"time"`
	MachineID string         `csv:"machine_id"`
	MemTotal  string         `csv:"mem_total"`
	MemFree   string         `csv:"mem_free"`
}

func (r *MemoryRecord) GetTS() time.Time {
	return r.Timestamp.Time
}

func (r *MemoryRecord) GetMachine() string {
	return r.MachineID
}

func (r *MemoryRecord) Reset() {
	*r = MemoryRecord{}
}

// Reading is the percent of memory in use, 100 * (total - free) / total. It is not available when
// either cell is NA or the total is not positive.
func (r *MemoryRecord) Reading() (utilization.Reading, error) {
	total, err := parseHostCell(r.MemTotal)
	if err != nil {
		return utilization.Reading{}, err
	}
	free, err := parseHostCell(r.MemFree)
	if err != nil {
		return utilization.Reading{}, err
	}

	if !total.Available || !free.Available || total.Value <= 0 {
		return utilization.Reading{}, nil
	}
	return utilization.Available(100 * (total.Value - free.Value) / total.Value), nil
}

// parseHostCell reads a host-level cell. Host collectors leave a cell empty when they have no value,
// which is the same as NA.
func parseHostCell(text string) (utilization.Reading, error) {
	if strings.TrimSpace(text) == "" {
		return utilization.Reading{}, nil
	}
	return utilization.ParseReading(text)
}

func checkRow(rec Record) error {
	if rec.GetMachine() == "" {
		return domain.Errorf(domain.ErrFormat, "row has no machine id")
	}
	if rec.GetTS().IsZero() {
		return domain.Errorf(domain.ErrFormat, "row for machine %s has no timestamp", rec.GetMachine())
	}
	return nil
}

// LoadGPUUtilization builds the per-GPU index from a utilization CSV.
func LoadGPUUtilization(ctx context.Context, path string, skipMalformed bool) (*utilization.GPUIndex, *LoadStats, error) {
	index := utilization.NewGPUIndex()
	pool := NewRecordPool(func() Record { return &GPURecord{} })

	stats, err := streamCSV(ctx, path, pool, func(rec Record) error {
		if err := checkRow(rec); err != nil {
			return err
		}
		readings, err := rec.(*GPURecord).Readings()
		if err != nil {
			return err
		}
		index.Put(rec.GetMachine(), rec.GetTS(), readings)
		return nil
	}, skipMalformed)
	if err != nil {
		return nil, stats, err
	}

	sugarLog.Infof("Indexed %d GPU utilization row(s) from \"%s\".", index.Len(), path)
	return index, stats, nil
}

type hostReader interface {
	Record
	Reading() (utilization.Reading, error)
}

func loadHost(ctx context.Context, path string, skipMalformed bool, newRecord func() Record) (*utilization.HostIndex, *LoadStats, error) {
	index := utilization.NewHostIndex()

	stats, err := streamCSV(ctx, path, NewRecordPool(newRecord), func(rec Record) error {
		if err := checkRow(rec); err != nil {
			return err
		}
		reading, err := rec.(hostReader).Reading()
		if err != nil {
			return err
		}
		index.Put(rec.GetMachine(), rec.GetTS(), reading)
		return nil
	}, skipMalformed)
	if err != nil {
		return nil, stats, err
	}

	sugarLog.Infof("Indexed %d host utilization row(s) from \"%s\".", index.Len(), path)
	return index, stats, nil
}

func LoadCPUUtilization(ctx context.Context, path string, skipMalformed bool) (*utilization.HostIndex, *LoadStats, error) {
	return loadHost(ctx, path, skipMalformed, func() Record { return &CPURecord{} })
}

func LoadMemoryUtilization(ctx context.Context, path string, skipMalformed bool) (*utilization.HostIndex, *LoadStats, error) {
	return loadHost(ctx, path, skipMalformed, func() Record { return &MemoryRecord{} })
}

// parseGPUCount reads the "number of GPUs" column, which some exports write as a float.
func parseGPUCount(text string) (int, error) {
	text = strings.TrimSpace(text)
	if count, err := strconv.Atoi(text); err == nil {
		return count, nil
	}

	count, err := strconv.ParseFloat(text, 64)
	if err != nil || count < 0 || count != float64(int(count)) {
		return 0, domain.Errorf(domain.ErrFormat, "GPU count \"%s\" is not a whole number", text)
	}
	return int(count), nil
}
