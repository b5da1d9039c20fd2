package loader

import (
	"os"

	"github.com/zhangjyr/gocsv"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
)

// MachineRecord is one row of the machine list.
type MachineRecord struct {
	MachineID string `csv:"machineId"`
	NumGPUs   string `csv:"number of GPUs"`
}

// LoadMachineList reads the machine list into a capacity directory. A machine listed twice keeps its
// last GPU count.
func LoadMachineList(path string) (overlap.CapacityDirectory, error) {
	if path == "" {
		return nil, domain.ErrNoPathSpecified
	}

	file, err := os.Open(path)
	if err != nil {
		sugarLog.Errorf("Failed to open machine list \"%v\": %v", path, err)
		return nil, err
	}
	defer file.Close()

	machines := []*MachineRecord{}
	if err := gocsv.UnmarshalFile(file, &machines); err != nil {
		return nil, domain.Errorf(domain.ErrFormat, "machine list \"%s\": %v", path, err)
	}

	directory := make(overlap.CapacityDirectory, len(machines))
	for i, machine := range machines {
		if machine.MachineID == "" {
			return nil, domain.Errorf(domain.ErrFormat, "machine list \"%s\" line %d has no machine id", path, i+2)
		}
		count, err := parseGPUCount(machine.NumGPUs)
		if err != nil {
			return nil, domain.Errorf(err, "machine list \"%s\" line %d", path, i+2)
		}
		directory[machine.MachineID] = count
	}

	sugarLog.Infof("Loaded capacity of %d machine(s) from \"%s\".", len(directory), path)
	return directory, nil
}
