// Package msort provides an iterative bottom-up merge sort.
package msort

// Sort sorts s in place with a stable bottom-up merge sort ordered by cmp.
// scratch must have at least len(s) elements; it is used as the merge
// buffer and its contents are undefined on return. Pass nil to let Sort
// allocate one.
//
// Each pass merges adjacent runs of width w into the other buffer and
// doubles w, so there is no recursion and the cost is O(n log n) for every
// input ordering.
func Sort[T any](s, scratch []T, cmp func(a, b T) int) {
	n := len(s)
	if n < 2 {
		return
	}
	if len(scratch) < n {
		scratch = make([]T, n)
	}
	src, dst := s, scratch[:n]
	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			merge(dst[lo:hi], src[lo:mid], src[mid:hi], cmp)
		}
		src, dst = dst, src
	}
	// After an odd number of passes the result sits in scratch.
	if &src[0] != &s[0] {
		copy(s, src)
	}
}

// merge merges the sorted runs a and b into dst (len(dst) == len(a)+len(b)).
// On ties the element from a is taken first, which keeps the sort stable.
func merge[T any](dst, a, b []T, cmp func(a, b T) int) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if cmp(b[j], a[i]) < 0 {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
