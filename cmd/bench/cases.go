// README: Bench checks: environment, migration, seeded-fare estimates, error mapping, and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

// Seeded route used by the estimate checks.
const (
	benchOrigin      = "Bench-Paris"
	benchDestination = "Bench-Marseille"
	benchFare        = 6.0
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	url := r.cfg.BaseURL + "/api/estimates"
	late := estimatePayload(3, map[string]any{"age": 25})

	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Seed: bench fare",
			Run:  seedFare,
		},
		{
			Name: "Cache: flush bench route",
			Run:  flushCachedFares,
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				resp, err := r.httpc.Get(r.cfg.BaseURL + "/health")
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return Result{Status: StatusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: StatusPass, Latency: time.Since(start)}
			},
		},

		// Priced with the seeded fare of 6.
		estimateCase("Estimate: late adult (+3 days)", url, late, 13.2),
		estimateCase("Estimate: sliding adult (+29 days)", url, estimatePayload(29, map[string]any{"age": 30}), 6.12),
		estimateCase("Estimate: advance adult (+31 days)", url, estimatePayload(31, map[string]any{"age": 30}), 5),
		estimateCase("Estimate: toddler and staff", url, estimatePayload(3,
			map[string]any{"age": 2},
			map[string]any{"age": 40, "discounts": []string{"train_staff"}},
		), 10),
		estimateCase("Estimate: nobody travels", url, map[string]any{"passengers": []any{}}, 0),

		statusCase("Reject: blank origin", url, map[string]any{
			"origin": "", "destination": benchDestination, "travel_date": travelDate(3),
			"passengers": []map[string]any{{"age": 30}},
		}, http.StatusBadRequest),
		statusCase("Reject: past date", url, estimatePayload(-1, map[string]any{"age": 30}), http.StatusBadRequest),
		statusCase("Reject: negative age", url, estimatePayload(3, map[string]any{"age": -1}), http.StatusBadRequest),
		statusCase("Reject: unknown card", url, estimatePayload(3, map[string]any{"age": 30, "discounts": []string{"gold"}}), http.StatusBadRequest),
		statusCase("Fare service: unknown route", url, map[string]any{
			"origin": benchOrigin, "destination": "Bench-Nowhere", "travel_date": travelDate(3),
			"passengers": []map[string]any{{"age": 30}},
		}, http.StatusBadGateway),

		{
			Name: "Perf: estimate load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, url, late)
			},
		},
	}
}

func seedFare(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "db not configured; API must already know the bench route"}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO fares (origin, destination, price, valid_from)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (origin, destination, valid_from) DO UPDATE SET price = EXCLUDED.price
	`, benchOrigin, benchDestination, benchFare, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

// flushCachedFares drops cached fares for the bench route so a reseeded
// price is picked up.
func flushCachedFares(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	pattern := "faresource:fare:*" + strings.ToLower(benchOrigin) + "*"
	var deleted int64
	iter := r.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.redis.Del(ctx, iter.Val()).Result()
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("deleted=%d", deleted)}
}

func travelDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func estimatePayload(days int, passengers ...map[string]any) map[string]any {
	return map[string]any{
		"origin":      benchOrigin,
		"destination": benchDestination,
		"travel_date": travelDate(days),
		"passengers":  passengers,
	}
}

func postJSON(ctx context.Context, r *Runner, url string, body any) (int, []byte, time.Duration, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, time.Since(start), err
}

func estimateCase(name, url string, body any, wantTotal float64) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, raw, latency, err := postJSON(ctx, r, url, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if status != http.StatusOK {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d body=%s", status, raw)}
			}
			var resp struct {
				Total float64 `json:"total"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				return Result{Status: StatusFail, Latency: latency, Note: err.Error()}
			}
			if resp.Total != wantTotal {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("total=%v want=%v", resp.Total, wantTotal)}
			}
			return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("total=%v", resp.Total)}
		},
	}
}

func statusCase(name, url string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, raw, latency, err := postJSON(ctx, r, url, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if status != want {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d body=%s", status, want, raw)}
			}
			return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					errCount.Add(1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
