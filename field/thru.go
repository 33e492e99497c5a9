package field

import (
	"fmt"
	"sort"
	"strconv"
)

// ExpandThru expands a field list containing integers and THRU range
// markers into an explicit id list. "10 THRU 13" yields 10,11,12,13
// inclusive. The result is de-duplicated and sorted ascending, matching
// how set-style cards consume their id lists.
func ExpandThru(fields []string) ([]int, error) {
	var ids []int
	for i := 0; i < len(fields); i++ {
		s := fields[i]
		if s == "" {
			continue
		}
		if isThru(s) {
			if len(ids) == 0 {
				return nil, fmt.Errorf("THRU with no preceding id in %v", fields)
			}
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("THRU with no following id in %v", fields)
			}
			hi, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid THRU upper bound %q", fields[i+1])
			}
			lo := ids[len(ids)-1]
			if hi < lo {
				return nil, fmt.Errorf("descending THRU range %d THRU %d", lo, hi)
			}
			for v := lo + 1; v <= hi; v++ {
				ids = append(ids, v)
			}
			i++
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in THRU list", s)
		}
		ids = append(ids, v)
	}
	return uniqueSorted(ids), nil
}

func isThru(s string) bool {
	return s == "THRU" || s == "thru" || s == "Thru"
}

func uniqueSorted(ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, v := range ids[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// CollapseThru rewrites a sorted id list back into field tokens,
// collapsing consecutive runs of at least four ids into "lo THRU hi".
// Shorter runs are cheaper to write explicitly.
func CollapseThru(ids []int) []string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sorted = uniqueSorted(sorted)

	var out []string
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if j-i >= 3 {
			out = append(out,
				strconv.Itoa(sorted[i]), "THRU", strconv.Itoa(sorted[j]))
		} else {
			for k := i; k <= j; k++ {
				out = append(out, strconv.Itoa(sorted[k]))
			}
		}
		i = j + 1
	}
	return out
}
