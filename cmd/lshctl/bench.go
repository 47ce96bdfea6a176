package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var (
	benchURL         string
	benchConcurrency int
	benchDuration    time.Duration
	benchThresholds  []float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test a running detector's check endpoint",
	Long: `bench fires GET /api/v1/check requests from concurrent workers for a
fixed duration, rotating through the given thresholds, then prints latency
percentiles, status codes and the result cache hit rate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchConcurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		if len(benchThresholds) == 0 {
			return fmt.Errorf("at least one threshold is required")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Plagiarism Detector Load Test ===")
		fmt.Fprintf(out, "Target:      %s\n", benchURL)
		fmt.Fprintf(out, "Concurrency: %d\n", benchConcurrency)
		fmt.Fprintf(out, "Duration:    %s\n", benchDuration)
		fmt.Fprintf(out, "Thresholds:  %v\n", benchThresholds)
		fmt.Fprintln(out)

		stats := runBench(cmd.Context(), out)
		printBenchReport(out, stats, benchDuration)
		if stats.totalRequests.Load() == 0 {
			return fmt.Errorf("no requests completed; is the detector running at %s?", benchURL)
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchURL, "url", "http://localhost:8080", "base URL of the detector")
	benchCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 10, "number of concurrent workers")
	benchCmd.Flags().DurationVarP(&benchDuration, "duration", "d", 30*time.Second, "test duration")
	benchCmd.Flags().Float64SliceVar(&benchThresholds, "thresholds", []float64{0.1, 0.3, 0.5, 0.7, 0.9}, "thresholds to rotate through")
}

type benchStats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func newBenchStats() *benchStats {
	return &benchStats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *benchStats) record(duration time.Duration, statusCode int, cached bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cached {
		s.cacheHits.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func runBench(parent context.Context, out io.Writer) *benchStats {
	stats := newBenchStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        benchConcurrency * 2,
			MaxIdleConnsPerHost: benchConcurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, benchDuration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Fprint(out, "Running")

	for w := 0; w < benchConcurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			next := workerID

			for ctx.Err() == nil {
				th := benchThresholds[next%len(benchThresholds)]
				next++

				checkURL := fmt.Sprintf("%s/api/v1/check?threshold=%s",
					benchURL, url.QueryEscape(strconv.FormatFloat(th, 'f', -1, 64)))
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
				if err != nil {
					stats.record(0, 0, false, err)
					return
				}

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(duration, 0, false, err)
					continue
				}

				var body struct {
					Cached bool `json:"cached"`
				}
				_ = json.NewDecoder(resp.Body).Decode(&body)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.record(duration, resp.StatusCode, body.Cached, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(out, ".")
			}
		}
	}()

	wg.Wait()
	fmt.Fprintln(out, " done!")
	fmt.Fprintln(out)
	return stats
}

func printBenchReport(out io.Writer, stats *benchStats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()
	hits := stats.cacheHits.Load()

	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", success)
	fmt.Fprintf(out, "Errors:          %d\n", failed)
	fmt.Fprintf(out, "Cache Hits:      %d\n", hits)

	if total > 0 {
		fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(out, "Cache Hit Rate:  %.2f%%\n", float64(hits)/float64(total)*100)
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Latency ===")
		fmt.Fprintf(out, "Min:    %s\n", latencies[0])
		fmt.Fprintf(out, "Avg:    %s\n", avg)
		fmt.Fprintf(out, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(out, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(out, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(out, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		fmt.Fprintf(out, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
