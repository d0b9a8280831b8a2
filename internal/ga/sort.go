package ga

// MergeSort returns pop sorted ascending by TotalWeightedFitness.
// It is stable and leaves the input slice untouched.
func MergeSort(pop []*Individual) []*Individual {
	out := make([]*Individual, len(pop))
	copy(out, pop)
	if len(out) < 2 {
		return out
	}
	buf := make([]*Individual, len(out))
	mergeSort(out, buf)
	return out
}

func mergeSort(a, buf []*Individual) {
	if len(a) < 2 {
		return
	}
	mid := len(a) / 2
	mergeSort(a[:mid], buf[:mid])
	mergeSort(a[mid:], buf[mid:])

	// already ordered across the split
	if a[mid-1].TotalWeightedFitness <= a[mid].TotalWeightedFitness {
		return
	}

	copy(buf, a)
	i, j, k := 0, mid, 0
	for i < mid && j < len(a) {
		// <= keeps equal elements in their original order
		if buf[i].TotalWeightedFitness <= buf[j].TotalWeightedFitness {
			a[k] = buf[i]
			i++
		} else {
			a[k] = buf[j]
			j++
		}
		k++
	}
	for i < mid {
		a[k] = buf[i]
		i++
		k++
	}
	for j < len(a) {
		a[k] = buf[j]
		j++
		k++
	}
}

// Best returns the last element of an ascending slice, or nil
func Best(sorted []*Individual) *Individual {
	if len(sorted) == 0 {
		return nil
	}
	return sorted[len(sorted)-1]
}
