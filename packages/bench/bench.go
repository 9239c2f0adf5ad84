// Package bench fires a scenario repeatedly and reports latency
// percentiles, so a check file doubles as a quick load probe.
package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/Praveenashok395/restspec/packages/assertions"
	"github.com/Praveenashok395/restspec/packages/core/env"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"golang.org/x/time/rate"
)

type Options struct {
	Requests    int           // total requests to send
	Concurrency int           // parallel workers
	Rate        float64       // requests per second, 0 means unlimited
	Timeout     time.Duration // per-request timeout override
}

// Report summarizes one benchmarked scenario. Latencies come from an HDR
// histogram recorded in microseconds.
type Report struct {
	Scenario    string
	Requests    int
	Succeeded   int
	Failed      int
	Errors      int
	Elapsed     time.Duration
	Throughput  float64 // requests per second
	StatusCodes map[int]int

	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
}

// latencies up to 10 minutes, 3 significant figures
const (
	histMin = 1
	histMax = int64(10 * time.Minute / time.Microsecond)
)

// Run benchmarks a single scenario. Checks still run on every response;
// a response that fails its checks counts as failed, not succeeded.
func Run(ctx context.Context, client *http.Client, s *scenario.Scenario, checks []*scenario.Check, resolver *env.Resolver, baseDir string, opts Options) (*Report, error) {
	if opts.Requests <= 0 {
		opts.Requests = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Concurrency > opts.Requests {
		opts.Concurrency = opts.Requests
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	hist := hdrhistogram.New(histMin, histMax, 3)
	report := &Report{
		Scenario:    s.Name,
		StatusCodes: make(map[int]int),
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		work = make(chan struct{})
	)

	worker := func() {
		defer wg.Done()
		for range work {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}

			req := http.BuildRequest(s, resolver.Resolve)
			if opts.Timeout > 0 {
				req.SetTimeout(opts.Timeout)
			}
			resp, err := client.DoContext(ctx, req)

			mu.Lock()
			report.Requests++
			if err != nil {
				report.Errors++
				mu.Unlock()
				continue
			}
			hist.RecordValue(int64(resp.Duration / time.Microsecond))
			report.StatusCodes[resp.StatusCode]++
			if checksPass(resp, checks, baseDir) {
				report.Succeeded++
			} else {
				report.Failed++
			}
			mu.Unlock()
		}
	}

	start := time.Now()
	wg.Add(opts.Concurrency)
	for i := 0; i < opts.Concurrency; i++ {
		go worker()
	}

	for i := 0; i < opts.Requests; i++ {
		select {
		case <-ctx.Done():
			i = opts.Requests
		case work <- struct{}{}:
		}
	}
	close(work)
	wg.Wait()
	report.Elapsed = time.Since(start)

	if report.Elapsed > 0 {
		report.Throughput = float64(report.Requests) / report.Elapsed.Seconds()
	}
	if hist.TotalCount() > 0 {
		report.Min = micros(hist.Min())
		report.Max = micros(hist.Max())
		report.Mean = time.Duration(hist.Mean() * float64(time.Microsecond))
		report.P50 = micros(hist.ValueAtQuantile(50))
		report.P95 = micros(hist.ValueAtQuantile(95))
		report.P99 = micros(hist.ValueAtQuantile(99))
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("benchmark interrupted: %w", err)
	}
	return report, nil
}

func checksPass(resp *http.Response, checks []*scenario.Check, baseDir string) bool {
	if len(checks) == 0 {
		return resp.IsSuccess()
	}
	for _, r := range assertions.EvaluateAll(resp, checks, baseDir) {
		if !r.Passed {
			return false
		}
	}
	return true
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
