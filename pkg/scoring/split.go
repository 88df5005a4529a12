package scoring

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// minClassMembers is the smallest class that can contribute to both partitions.
const minClassMembers = 2

// stratifiedSplit returns sorted train and test row indexes. Each label class
// is shuffled with its own seeded source and cut at the same test fraction,
// so both partitions keep the class ratio and the split depends only on the
// labels, the fraction and the seed.
func stratifiedSplit(y []int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: test size %v must be in (0, 1)", ErrDegenerateSplit, testSize)
	}

	classes := make(map[int][]int)
	for i, v := range y {
		classes[v] = append(classes[v], i)
	}
	if len(classes) < 2 {
		return nil, nil, fmt.Errorf("%w: need both label classes, got %d", ErrDegenerateSplit, len(classes))
	}

	labels := make([]int, 0, len(classes))
	for k := range classes {
		labels = append(labels, k)
	}
	sort.Ints(labels)

	for _, label := range labels {
		idx := classes[label]
		if len(idx) < minClassMembers {
			return nil, nil, fmt.Errorf("%w: class %d has %d members", ErrDegenerateSplit, label, len(idx))
		}

		r := rand.New(rand.NewPCG(seed, uint64(label)))
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		n := int(math.Round(float64(len(idx)) * testSize))
		n = min(max(n, 1), len(idx)-1)

		test = append(test, idx[:n]...)
		train = append(train, idx[n:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
