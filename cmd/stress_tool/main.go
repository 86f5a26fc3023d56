package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

type result struct {
	status  int
	latency time.Duration
}

// request shapes per mode, chosen to trip specific detector signatures.
type shape struct {
	path      string
	method    string
	userAgent string
	headers   map[string]string
}

var shapes = map[string]shape{
	"clean":     {path: "/es/dashboard", method: http.MethodGet, userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"},
	"wordpress": {path: "/wp-admin/setup-config.php", method: http.MethodGet, userAgent: "Mozilla/5.0 (compatible; probe)"},
	"traversal": {path: "/static/../../etc/passwd", method: http.MethodGet, userAgent: "curl/8.0"},
	"sqlmap":    {path: "/api/v1/users", method: http.MethodGet, userAgent: "sqlmap/1.6#stable"},
	"spoof": {path: "/es/dashboard", method: http.MethodGet,
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		headers:   map[string]string{"X-Forwarded-Host": "productos-ia.com", "X-Client-IP": "1.2.3.4"}},
	"noua":  {path: "/wp-login.php", method: http.MethodPut},
	"flood": {path: "/api/ai/chat", method: http.MethodGet, userAgent: "Mozilla/5.0 AppleWebKit/537.36"},
}

func main() {
	target := flag.String("target", "http://localhost:8080", "Target base URL")
	concurrency := flag.Int("c", 10, "Concurrency level (number of goroutines)")
	requests := flag.Int("n", 100, "Total number of requests")
	rps := flag.Float64("rps", 0, "Request pacing, requests/sec across all workers (0 = unpaced)")
	mode := flag.String("mode", "clean", "Mode: clean, wordpress, traversal, sqlmap, spoof, noua, flood")
	flag.Parse()

	sh, ok := shapes[*mode]
	if !ok {
		fmt.Printf("Unknown mode %q\n", *mode)
		return
	}

	fmt.Printf("gatewatch stress tool\n")
	fmt.Printf("Target:      %s%s\n", *target, sh.path)
	fmt.Printf("Concurrency: %d routines\n", *concurrency)
	fmt.Printf("Requests:    %d total\n", *requests)
	fmt.Printf("Mode:        %s\n", *mode)
	fmt.Printf("----------------------------------\n")

	var pacer *rate.Limiter
	if *rps > 0 {
		pacer = rate.NewLimiter(rate.Limit(*rps), 1)
	}

	bar := progressbar.Default(int64(*requests))
	results := make(chan result, *requests)
	var wg sync.WaitGroup

	reqPerRoutine := *requests / *concurrency
	startTime := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			for j := 0; j < reqPerRoutine; j++ {
				if pacer != nil {
					pacer.Wait(context.Background())
				}

				req, err := http.NewRequest(sh.method, *target+sh.path, nil)
				if err != nil {
					results <- result{status: 0}
					bar.Add(1)
					continue
				}
				if sh.userAgent != "" {
					req.Header.Set("User-Agent", sh.userAgent)
				} else {
					req.Header.Del("User-Agent")
				}
				for k, v := range sh.headers {
					req.Header.Set(k, v)
				}

				reqStart := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(reqStart)
				if err != nil {
					results <- result{status: 0, latency: duration}
					bar.Add(1)
					continue
				}
				results <- result{status: resp.StatusCode, latency: duration}
				resp.Body.Close()
				bar.Add(1)
			}
		}()
	}

	wg.Wait()
	close(results)

	totalDuration := time.Since(startTime)

	var latencies []time.Duration
	statusCodes := make(map[int]int)
	var totalLatency time.Duration

	for res := range results {
		statusCodes[res.status]++
		latencies = append(latencies, res.latency)
		totalLatency += res.latency
	}

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	totalReqs := len(latencies)
	if totalReqs == 0 {
		fmt.Println("No requests completed.")
		return
	}

	avgLatency := totalLatency / time.Duration(totalReqs)
	p50 := latencies[int(float64(totalReqs)*0.5)]
	p90 := latencies[int(float64(totalReqs)*0.9)]
	p95 := latencies[int(float64(totalReqs)*0.95)]
	p99 := latencies[int(float64(totalReqs)*0.99)]

	fmt.Printf("\n--- Throughput & Timing ---\n")
	fmt.Printf("Total Time:     %v\n", totalDuration)
	fmt.Printf("Requests/sec:   %.2f\n", float64(totalReqs)/totalDuration.Seconds())
	fmt.Printf("Avg Latency:    %v\n", avgLatency)
	fmt.Printf("Min Latency:    %v\n", latencies[0])
	fmt.Printf("Max Latency:    %v\n", latencies[totalReqs-1])

	fmt.Printf("\n--- Latency Percentiles ---\n")
	fmt.Printf("  p50: %v\n", p50)
	fmt.Printf("  p90: %v\n", p90)
	fmt.Printf("  p95: %v\n", p95)
	fmt.Printf("  p99: %v\n", p99)

	fmt.Printf("\n--- Outcome Summary ---\n")
	for code, count := range statusCodes {
		label := "Unknown"
		switch code {
		case 200:
			label = "Allowed"
		case 307:
			label = "Locale Redirect"
		case 429:
			label = "Rate Limited"
		case 502:
			label = "Upstream Unreachable"
		case 0:
			label = "Connection Dropped"
		}
		fmt.Printf("  [%d] %-22s : %d\n", code, label, count)
	}
	fmt.Printf("----------------------------------\n")
}
