package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Result struct {
	Probe
	Status    int       `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker probes the public URLs of the network on an interval, keeps the
// last result of each probe in memory and raises webhook alerts after
// AlertThreshold consecutive failures.
type Checker struct {
	Probes         []Probe
	Interval       time.Duration
	Client         *http.Client
	Webhook        *WebhookSender
	AlertThreshold int
	Log            *slog.Logger
	// OnResult, when set, sees every result. Used to feed metrics.
	OnResult func(Result)

	mu       sync.Mutex
	failures map[string]int
	alerted  map[string]bool
	latest   map[string]Result
}

func NewChecker(probes []Probe, interval, timeout time.Duration, webhookURL, webhookFormat string, alertThreshold int, log *slog.Logger) *Checker {
	var webhook *WebhookSender
	if webhookURL != "" {
		webhook = NewWebhookSender(webhookURL, webhookFormat)
	}
	if alertThreshold <= 0 {
		alertThreshold = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		Probes:         probes,
		Interval:       interval,
		Client:         &http.Client{Timeout: timeout},
		Webhook:        webhook,
		AlertThreshold: alertThreshold,
		Log:            log,
		failures:       make(map[string]int),
		alerted:        make(map[string]bool),
		latest:         make(map[string]Result),
	}
}

func (ch *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(ch.Interval)
	defer ticker.Stop()

	ch.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			ch.Log.Info("health checker stopped")
			return
		case <-ticker.C:
			ch.RunOnce(ctx)
		}
	}
}

// RunOnce runs every probe concurrently and returns the results in probe
// order.
func (ch *Checker) RunOnce(ctx context.Context) []Result {
	results := make([]Result, len(ch.Probes))
	var wg sync.WaitGroup
	for i, p := range ch.Probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = ch.check(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for _, r := range results {
		ch.record(r)
	}
	return results
}

// Latest returns the most recent result of each probe, in probe order.
// Probes that never ran are omitted.
func (ch *Checker) Latest() []Result {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	out := make([]Result, 0, len(ch.latest))
	for _, p := range ch.Probes {
		if r, ok := ch.latest[p.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (ch *Checker) check(ctx context.Context, p Probe) Result {
	r := Result{Probe: p, CheckedAt: time.Now().UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	start := time.Now()
	resp, err := ch.Client.Do(req)
	r.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	resp.Body.Close()

	r.Status = resp.StatusCode
	r.OK = resp.StatusCode == p.Expected
	return r
}

func (ch *Checker) record(r Result) {
	if ch.OnResult != nil {
		ch.OnResult(r)
	}

	ch.mu.Lock()
	ch.latest[r.Name] = r
	if !r.OK {
		ch.failures[r.Name]++
		count := ch.failures[r.Name]
		alerted := ch.alerted[r.Name]
		ch.mu.Unlock()

		ch.Log.Warn("probe failed", "probe", r.Name, "url", r.URL, "status", r.Status, "error", r.Error, "failures", count)

		if count >= ch.AlertThreshold && !alerted && ch.Webhook != nil {
			if err := ch.Webhook.SendAlert(r, count); err != nil {
				ch.Log.Error("webhook alert failed", "probe", r.Name, "error", err)
			} else {
				ch.mu.Lock()
				ch.alerted[r.Name] = true
				ch.mu.Unlock()
			}
		}
		return
	}

	wasDown := ch.failures[r.Name] > 0
	alerted := ch.alerted[r.Name]
	ch.failures[r.Name] = 0
	ch.alerted[r.Name] = false
	ch.mu.Unlock()

	if wasDown && alerted && ch.Webhook != nil {
		if err := ch.Webhook.SendRecovery(r); err != nil {
			ch.Log.Error("webhook recovery failed", "probe", r.Name, "error", err)
		}
	}
}
