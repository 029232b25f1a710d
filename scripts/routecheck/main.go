// Routecheck hits every route of a running server concurrently and verifies
// the status each one must answer with.
//
// Usage:
//
//	go run ./scripts/routecheck -url http://localhost:8080 -rounds 20 -concurrency 8
//
// Exit codes:
//
//	0 - every response matched
//	2 - at least one response had an unexpected status or no correlation id
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

type check struct {
	Path   string
	Status int
}

var checks = []check{
	{"/api/members/1", http.StatusOK},
	{"/api/members/bad", http.StatusBadRequest},
	{"/api/members/user-ex", http.StatusInternalServerError},
	{"/api/members/ex", http.StatusInternalServerError},
	{"/api2/members/42", http.StatusOK},
	{"/api2/members/bad", http.StatusBadRequest},
	{"/api2/members/user-ex", http.StatusBadRequest},
	{"/api2/members/ex", http.StatusInternalServerError},
	{"/api/response-status-ex1", http.StatusBadRequest},
	{"/api/response-status-ex2", http.StatusNotFound},
	{"/api/default-handler-ex?data=qqq", http.StatusBadRequest},
	{"/api/default-handler-ex?data=10", http.StatusOK},
	{"/error-ex", http.StatusInternalServerError},
	{"/error-400", http.StatusBadRequest},
	{"/error-404", http.StatusNotFound},
	{"/error-500", http.StatusInternalServerError},
	{"/health", http.StatusOK},
}

type result struct {
	check    check
	status   int
	id       string
	duration time.Duration
	err      error
}

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "Server base URL")
		rounds      = flag.Int("rounds", 10, "Times every route is requested")
		concurrency = flag.Int("concurrency", 8, "Number of concurrent requests")
		timeoutSec  = flag.Int("timeout", 5, "Per-request timeout in seconds")
		verbose     = flag.Bool("v", false, "Print every mismatch")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	var (
		mu      sync.Mutex
		results []result
	)

	start := time.Now()
	p := pool.New().WithMaxGoroutines(*concurrency)
	for range *rounds {
		for _, c := range checks {
			p.Go(func() {
				r := do(client, *baseURL, c)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			})
		}
	}
	p.Wait()
	elapsed := time.Since(start)

	failed := lo.Filter(results, func(r result, _ int) bool {
		return r.err != nil || r.status != r.check.Status || r.id == ""
	})
	ids := lo.Uniq(lo.FilterMap(results, func(r result, _ int) (string, bool) {
		return r.id, r.id != ""
	}))

	fmt.Println("--- Route Check Summary ---")
	fmt.Printf("Target: %s\n", *baseURL)
	fmt.Printf("Requests: %d  Failed: %d  Duration: %v\n", len(results), len(failed), elapsed)
	fmt.Printf("Distinct correlation ids: %d\n", len(ids))

	byPath := lo.GroupBy(results, func(r result) string { return r.check.Path })
	paths := lo.Keys(byPath)
	sort.Strings(paths)
	fmt.Println("\nPer route:")
	for _, path := range paths {
		rs := byPath[path]
		ok := lo.CountBy(rs, func(r result) bool { return r.err == nil && r.status == r.check.Status })
		avg := lo.SumBy(rs, func(r result) time.Duration { return r.duration }) / time.Duration(len(rs))
		fmt.Printf("  %-36s want=%d ok=%d/%d avg=%v\n", path, rs[0].check.Status, ok, len(rs), avg)
	}

	if *verbose {
		for _, r := range failed {
			fmt.Printf("  MISMATCH %s want=%d got=%d id=%q err=%v\n", r.check.Path, r.check.Status, r.status, r.id, r.err)
		}
	}

	if len(failed) > 0 || len(ids) != len(results) {
		os.Exit(2)
	}
}

func do(client *http.Client, baseURL string, c check) result {
	start := time.Now()
	resp, err := client.Get(baseURL + c.Path)
	if err != nil {
		return result{check: c, duration: time.Since(start), err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return result{
		check:    c,
		status:   resp.StatusCode,
		id:       resp.Header.Get("X-Request-ID"),
		duration: time.Since(start),
	}
}
