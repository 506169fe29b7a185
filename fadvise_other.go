//go:build !linux

package bucketsort

import "os"

// fadviseSequential is a no-op outside Linux.
func fadviseSequential(f *os.File) {}

// fadviseDontNeed is a no-op outside Linux.
func fadviseDontNeed(f *os.File) {}
