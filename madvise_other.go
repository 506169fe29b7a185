//go:build !linux && !darwin

package bucketsort

// madviseSequential is a no-op on platforms without madvise.
func madviseSequential(data []byte) {}
