package overlap

// CapacityDirectory maps a machine id to the number of GPUs it hosts.
type CapacityDirectory map[string]int

// Capacity returns the GPU count of a machine. Machines missing from the directory, and machines
// listed with no GPUs, report false.
func (d CapacityDirectory) Capacity(machine string) (int, bool) {
	capacity, ok := d[machine]
	if !ok || capacity <= 0 {
		return 0, false
	}
	return capacity, true
}
