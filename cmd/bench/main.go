// Bench is a benchmarking tool for measuring bucketsort throughput and
// memory usage on generated input.
//
// Usage:
//
//	go run ./cmd/bench -size 1024 -workers 8 -memory 512
//
// Flags:
//
//	-size      Input size in MiB (default: 256)
//	-workers   Parallelism degree (default: GOMAXPROCS)
//	-memory    Memory budget for bucket sorts in MiB (default: 1024)
//	-seed      Generator seed (default: 1)
//	-verify    Verify the output while merging (default: true)
//	-tmp       Directory for input, output and work files (default: system temp)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tamirms/bucketsort"
	"github.com/tamirms/bucketsort/internal/gen"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler records peak heap and RSS every 10ms until stopped.
// Uses runtime/metrics instead of ReadMemStats to avoid stop-the-world pauses.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startSampler(baseHeap, baseRSS uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(baseHeap)
	s.rss.Store(baseRSS)
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func (s *peakSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, getMaxRSS())
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func main() {
	sizeFlag := flag.Int64("size", 256, "input size in MiB")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "parallelism degree")
	memoryFlag := flag.Int64("memory", 1024, "memory budget for bucket sorts in MiB")
	seedFlag := flag.Uint("seed", 1, "generator seed")
	verifyFlag := flag.Bool("verify", true, "verify output while merging")
	tmpFlag := flag.String("tmp", "", "directory for input, output and work files")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (sort phase only)")
	memprofile := flag.String("memprofile", "", "write memory profile to file (sort phase only)")
	flag.Parse()

	tmpDir, err := os.MkdirTemp(*tmpFlag, "bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	inputPath := filepath.Join(tmpDir, "input.txt")
	outputPath := filepath.Join(tmpDir, "output.txt")

	fmt.Println("Generating input...")
	genStart := time.Now()
	lines, inputBytes, err := generate(inputPath, *sizeFlag<<20, uint32(*seedFlag))
	if err != nil {
		fmt.Printf("Generate failed: %v\n", err)
		return
	}
	genDuration := time.Since(genStart)

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startSampler(baseline.Alloc, baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Sorting...")
	stats, err := bucketsort.Sort(context.Background(), inputPath, outputPath,
		bucketsort.WithWorkers(*workersFlag),
		bucketsort.WithMemoryBudget(*memoryFlag<<20),
		bucketsort.WithVerify(*verifyFlag),
		bucketsort.WithTempDir(tmpDir),
	)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}
	sampler.stop()

	if err != nil {
		fmt.Printf("Sort failed: %v\n", err)
		return
	}

	peakHeapMem := sampler.heap.Load() - baseline.Alloc
	peakRSSMem := sampler.rss.Load() - baselineRSS
	mb := float64(inputBytes) / (1 << 20)

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦══════════════════╗\n")
	fmt.Printf("║ Workers: %-11d║ Memory: %-5d MiB ║\n", *workersFlag, *memoryFlag)
	fmt.Printf("╠═════════════════════╬══════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value            ║\n")
	fmt.Printf("╠═════════════════════╬══════════════════╣\n")
	fmt.Printf("║ Input size          ║ %8.1f MiB     ║\n", mb)
	fmt.Printf("║ Input lines         ║ %12d     ║\n", lines)
	fmt.Printf("║ Output records      ║ %12d     ║\n", stats.Records)
	fmt.Printf("║ Buckets / runs      ║ %5d / %-6d   ║\n", stats.Buckets, stats.Runs)
	fmt.Printf("║ Waves               ║ %12d     ║\n", stats.Waves)
	fmt.Printf("║ Generate time       ║ %8.2f sec     ║\n", genDuration.Seconds())
	fmt.Printf("║ Partition time      ║ %8.2f sec     ║\n", stats.Partition.Seconds())
	fmt.Printf("║ Sort time           ║ %8.2f sec     ║\n", stats.Sort.Seconds())
	fmt.Printf("║ Merge time          ║ %8.2f sec     ║\n", stats.Merge.Seconds())
	fmt.Printf("║ Total sort time     ║ %8.2f sec     ║\n", stats.Total.Seconds())
	fmt.Printf("║ Throughput          ║ %8.1f MiB/s   ║\n", mb/stats.Total.Seconds())
	fmt.Printf("║ Peak heap memory    ║ %8.1f MB      ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %8.1f MB      ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩══════════════════╝\n")
}

// generate writes at least size bytes of random input to path.
func generate(path string, size int64, seed uint32) (lines, written int64, err error) {
	g, err := gen.New(gen.DefaultWords, seed)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	lines, written, err = g.WriteSize(f, size)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return lines, written, err
}
