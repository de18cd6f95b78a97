// Command authclient-loadtest drives many Engines concurrently through
// login, profile fetch, refresh, and logout, and reports per-phase latency.
//
// Engines share one Redis credential store, each under its own origin. An
// in-process miniredis and fake auth service are used unless -redis-addr
// and -base-url point elsewhere.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/authtest"
)

const (
	loadUser     = "loaduser"
	loadPassword = "loadpass1"
)

func main() {
	var (
		engines   = flag.Int("engines", 64, "number of concurrent engines")
		rounds    = flag.Int("rounds", 50, "login/me/refresh/logout rounds per engine")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		baseURL   = flag.String("base-url", "", "auth service; if empty, an in-process fake is started")
		username  = flag.String("username", loadUser, "account used by every engine")
		password  = flag.String("password", loadPassword, "password for -username")
	)
	flag.Parse()

	if *engines <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "engines and rounds must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	target := *baseURL
	if target == "" {
		auth := authtest.New(authtest.Options{})
		auth.AddUser(*username, *password, "USER")
		srv := httptest.NewServer(auth)
		defer srv.Close()
		target = srv.URL
		fmt.Printf("using fake auth service at %s\n", target)
	}

	pool, err := buildEngines(*engines, target, "redis://"+addr, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engines: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, e := range pool {
			_ = e.Close()
		}
	}()

	ctx := context.Background()
	login := loginRequest(*username, *password)
	rec := newRecorder(*engines * *rounds)

	start := time.Now()
	var wg sync.WaitGroup
	for _, e := range pool {
		wg.Add(1)
		go func(e *goAuthClient.Engine) {
			defer wg.Done()
			for i := 0; i < *rounds; i++ {
				runRound(ctx, e, login, rec)
			}
		}(e)
	}
	wg.Wait()
	total := time.Since(start)

	fmt.Println("---- results ----")
	for _, phase := range phases {
		printStats(phase, rec.stats(phase, total))
	}
}

var phases = []string{"login", "me", "refresh", "logout"}

func loginRequest(username, password string) goAuthClient.LoginRequest {
	return goAuthClient.LoginRequest{Username: username, Password: password}
}

func buildEngines(n int, baseURL, redisURL string, client redis.UniversalClient) ([]*goAuthClient.Engine, error) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: n}}

	out := make([]*goAuthClient.Engine, 0, n)
	for i := 0; i < n; i++ {
		cfg := goAuthClient.DefaultConfig()
		cfg.Server.BaseURL = baseURL
		cfg.Refresh.Enabled = false
		cfg.Storage.Backend = goAuthClient.StorageRedis
		cfg.Storage.RedisURL = redisURL
		cfg.Storage.Namespace = "authclient-load"
		cfg.Storage.Origin = fmt.Sprintf("engine-%d", i)
		cfg.Metrics.EnableLatencyHistograms = true

		e, err := goAuthClient.New().
			WithConfig(cfg).
			WithRedis(client).
			WithHTTPClient(transport).
			WithLogger(quiet).
			Build()
		if err != nil {
			for _, built := range out {
				_ = built.Close()
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func runRound(ctx context.Context, e *goAuthClient.Engine, login goAuthClient.LoginRequest, rec *recorder) {
	rec.time("login", func() bool { return e.Login(ctx, login) })
	rec.time("me", func() bool {
		var u goAuthClient.User
		return e.Do(ctx, http.MethodGet, goAuthClient.PathMe, nil, &u) == nil
	})
	rec.time("refresh", func() bool { return e.Refresh(ctx) })
	rec.time("logout", func() bool {
		e.Logout(ctx)
		return !e.State().IsAuthenticated
	})
}

type recorder struct {
	mu       sync.Mutex
	samples  map[string][]time.Duration
	failures map[string]*int64
}

func newRecorder(capacity int) *recorder {
	r := &recorder{
		samples:  make(map[string][]time.Duration, len(phases)),
		failures: make(map[string]*int64, len(phases)),
	}
	for _, p := range phases {
		r.samples[p] = make([]time.Duration, 0, capacity)
		r.failures[p] = new(int64)
	}
	return r
}

func (r *recorder) time(phase string, op func() bool) {
	t0 := time.Now()
	ok := op()
	d := time.Since(t0)
	if !ok {
		atomic.AddInt64(r.failures[phase], 1)
	}
	r.mu.Lock()
	r.samples[phase] = append(r.samples[phase], d)
	r.mu.Unlock()
}

func (r *recorder) stats(phase string, total time.Duration) phaseStats {
	r.mu.Lock()
	samples := append([]time.Duration(nil), r.samples[phase]...)
	r.mu.Unlock()
	return computeStats(total, samples, atomic.LoadInt64(r.failures[phase]))
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
