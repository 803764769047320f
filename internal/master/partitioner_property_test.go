// Property-based tests for the batch partitioner: every file lands in
// exactly one dispatch unit, shares stay even to within one file, and the
// extra files go to the earliest-registered workers.
package master

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPartitionCompletenessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: every file index appears in exactly one unit.
	properties.Property("every file assigned exactly once", prop.ForAll(
		func(n, m int) bool {
			units, err := Partition(makeFiles(n), makeWorkers(m))
			if err != nil {
				return false
			}

			seen := make(map[int]int)
			for _, u := range units {
				for _, f := range u.Files {
					seen[f.Index]++
				}
			}
			if len(seen) != n {
				return false
			}
			for _, count := range seen {
				if count != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 30),
	))

	// Property: each worker's share is floor(N/M) or ceil(N/M), and the
	// extras fall to the earliest workers in registration order.
	properties.Property("shares are even with extras to earliest workers", prop.ForAll(
		func(n, m int) bool {
			workers := makeWorkers(m)
			units, err := Partition(makeFiles(n), workers)
			if err != nil {
				return false
			}

			shares := make(map[int]int) // worker position -> share size
			for _, u := range units {
				shares[u.Worker.Port-3000] = len(u.Files)
			}

			floor := n / m
			remainder := n % m
			for pos := 0; pos < m; pos++ {
				want := floor
				if pos < remainder {
					want = floor + 1
				}
				if want == 0 {
					// Empty share means no unit at all.
					if _, ok := shares[pos]; ok {
						return false
					}
					continue
				}
				if shares[pos] != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 30),
	))

	// Property: within one unit, files keep their global order.
	properties.Property("unit files stay in global order", prop.ForAll(
		func(n, m int) bool {
			units, err := Partition(makeFiles(n), makeWorkers(m))
			if err != nil {
				return false
			}
			for _, u := range units {
				for i := 1; i < len(u.Files); i++ {
					if u.Files[i].Index <= u.Files[i-1].Index {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}
