// Package cards implements the columnar card tables of the bulk data
// model: one table per card type, each owning a staging list of raw
// parsed tuples and a set of same-length attribute arrays, with
// slice/sort/convert/write operations over whole columns.
package cards

import "fmt"

// Idim derives per-row [start, end) offsets into a flat ragged buffer
// from the per-row counts. Offsets are a prefix sum; row i owns
// flat[idim[i][0]:idim[i][1]].
func Idim(counts []int) [][2]int {
	idim := make([][2]int, len(counts))
	offset := 0
	for i, c := range counts {
		idim[i] = [2]int{offset, offset + c}
		offset += c
	}
	return idim
}

// CheckRagged panics unless the flat buffer length equals the count
// sum. A violation is an engine bug, not bad input.
func CheckRagged(what string, counts []int, flatLen int) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != flatLen {
		panic(fmt.Sprintf("%s: ragged invariant violated: sum(counts)=%d len(flat)=%d",
			what, total, flatLen))
	}
}

// HSliceInts gathers the per-row groups of the selected rows out of a
// flat integer buffer, producing a new flat buffer and count vector.
// The selection order is preserved; this is a per-row re-slice, not a
// flat index into the concatenated array.
func HSliceInts(rows []int, idim [][2]int, flat []int) ([]int, []int) {
	var out []int
	counts := make([]int, len(rows))
	for k, i := range rows {
		d := idim[i]
		out = append(out, flat[d[0]:d[1]]...)
		counts[k] = d[1] - d[0]
	}
	return out, counts
}

// HSliceFloats is HSliceInts for float64 buffers.
func HSliceFloats(rows []int, idim [][2]int, flat []float64) ([]float64, []int) {
	var out []float64
	counts := make([]int, len(rows))
	for k, i := range rows {
		d := idim[i]
		out = append(out, flat[d[0]:d[1]]...)
		counts[k] = d[1] - d[0]
	}
	return out, counts
}

// gatherInts selects rows of a dense int column.
func gatherInts(rows []int, col []int) []int {
	out := make([]int, len(rows))
	for k, i := range rows {
		out[k] = col[i]
	}
	return out
}

// gatherFloats selects rows of a dense float64 column.
func gatherFloats(rows []int, col []float64) []float64 {
	out := make([]float64, len(rows))
	for k, i := range rows {
		out[k] = col[i]
	}
	return out
}

// gatherBools selects rows of a dense bool column.
func gatherBools(rows []int, col []bool) []bool {
	out := make([]bool, len(rows))
	for k, i := range rows {
		out[k] = col[i]
	}
	return out
}

// gatherStrided selects rows of a flat column holding stride values per
// row (e.g. xyz triples).
func gatherStrided(rows []int, col []float64, stride int) []float64 {
	out := make([]float64, 0, len(rows)*stride)
	for _, i := range rows {
		out = append(out, col[i*stride:(i+1)*stride]...)
	}
	return out
}

func gatherStridedInts(rows []int, col []int, stride int) []int {
	out := make([]int, 0, len(rows)*stride)
	for _, i := range rows {
		out = append(out, col[i*stride:(i+1)*stride]...)
	}
	return out
}
