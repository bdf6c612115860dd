//go:build linux

package flood

import (
	"errors"

	"golang.org/x/sys/unix"
)

// pinThread restricts the calling thread to one of the CPUs it may
// currently run on, chosen round robin by worker index.
func pinThread(index int) (int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return -1, err
	}

	n := set.Count()
	if n == 0 {
		return -1, errors.New(`flood: empty cpu set`)
	}
	allowed := make([]int, 0, n)
	for cpu := 0; len(allowed) < n; cpu++ {
		if set.IsSet(cpu) {
			allowed = append(allowed, cpu)
		}
	}

	cpu := allowed[(index-1)%n]
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return -1, err
	}
	return cpu, nil
}
