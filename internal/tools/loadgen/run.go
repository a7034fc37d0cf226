package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config drives synthetic traffic against a running coordinator. Without an
// access token only unauthenticated surfaces are exercised; with one, the
// collab profile drives the session API itself.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64

	// AccessToken and DocumentRef enable the collab profile.
	AccessToken string
	DocumentRef string
}

type Result struct {
	TotalRequests int64
	Failures      int64
	StatusClasses map[string]int64
}

type target struct {
	method string
	path   func(r *rand.Rand) string
	body   func(r *rand.Rand) string
	authed bool
}

var healthTargets = []target{
	{method: http.MethodGet, path: func(*rand.Rand) string { return "/health/live" }},
	{method: http.MethodGet, path: func(*rand.Rand) string { return "/health/ready" }},
}

var portalTargets = []target{
	// random tokens; every open is expected to be rejected
	{method: http.MethodGet, path: func(r *rand.Rand) string {
		return fmt.Sprintf("/portal/collab/probe-%016x", r.Int63())
	}},
}

func collabTargets(documentRef, sessionID string) []target {
	targets := []target{
		{
			method: http.MethodPost,
			path:   func(*rand.Rand) string { return "/api/v1/collab/sessions" },
			body: func(*rand.Rand) string {
				return fmt.Sprintf(`{"document_ref":%q}`, documentRef)
			},
			authed: true,
		},
		{
			method: http.MethodGet,
			path: func(*rand.Rand) string {
				return fmt.Sprintf("/api/v1/collab/documents/%s/sessions", documentRef)
			},
			authed: true,
		},
	}
	if sessionID != "" {
		targets = append(targets,
			target{
				method: http.MethodGet,
				path: func(*rand.Rand) string {
					return fmt.Sprintf("/api/v1/collab/sessions/%s", sessionID)
				},
				authed: true,
			},
			target{
				method: http.MethodPost,
				path: func(*rand.Rand) string {
					return fmt.Sprintf("/api/v1/collab/sessions/%s/presence", sessionID)
				},
				body: func(r *rand.Rand) string {
					anchor := r.Int63n(4096)
					return fmt.Sprintf(`{"anchor":%d,"head":%d}`, anchor, anchor+r.Int63n(64))
				},
				authed: true,
			},
		)
	}
	return targets
}

func targetsForProfile(profile string, cfg Config, sessionID string) []target {
	switch profile {
	case "health":
		return healthTargets
	case "portal":
		return portalTargets
	case "collab":
		if cfg.AccessToken == "" {
			return portalTargets
		}
		return collabTargets(cfg.DocumentRef, sessionID)
	default:
		targets := append(append([]target{}, healthTargets...), portalTargets...)
		if cfg.AccessToken != "" {
			targets = append(targets, collabTargets(cfg.DocumentRef, sessionID)...)
		}
		return targets
	}
}

// Run fires requests at the configured rate until the duration elapses or
// ctx is cancelled, and reports per-status-class counts.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		return Result{}, fmt.Errorf("base url is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.DocumentRef == "" {
		cfg.DocumentRef = "contract:loadgen-probe"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	profile := normalizeProfile(cfg.Profile)
	var sessionID string
	if cfg.AccessToken != "" && profile != "health" && profile != "portal" {
		id, err := primeCollabSession(ctx, client, baseURL, cfg)
		if err != nil {
			return Result{}, fmt.Errorf("prime collab session: %w", err)
		}
		sessionID = id
	}
	targets := targetsForProfile(profile, cfg, sessionID)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	jobs := make(chan target)
	res := Result{StatusClasses: map[string]int64{}}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		seed := cfg.Seed + int64(i)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for tgt := range jobs {
				var body string
				if tgt.body != nil {
					body = tgt.body(rng)
				}
				token := ""
				if tgt.authed {
					token = cfg.AccessToken
				}
				status, err := fire(runCtx, client, tgt.method, baseURL+tgt.path(rng), body, token)
				mu.Lock()
				res.TotalRequests++
				if err != nil || status >= 500 {
					res.Failures++
				}
				if err == nil {
					res.StatusClasses[classifyStatusClass(status)]++
				}
				mu.Unlock()
			}
		}()
	}

	picker := rand.New(rand.NewSource(cfg.Seed))
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()

dispatch:
	for {
		select {
		case <-runCtx.Done():
			break dispatch
		case <-ticker.C:
			select {
			case jobs <- targets[picker.Intn(len(targets))]:
			case <-runCtx.Done():
				break dispatch
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// primeCollabSession opens or joins the document's session up front so the
// describe and presence targets have a live session to hit.
func primeCollabSession(ctx context.Context, client *http.Client, baseURL string, cfg Config) (string, error) {
	body := fmt.Sprintf(`{"document_ref":%q}`, cfg.DocumentRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/collab/sessions", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.AccessToken)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.Session.ID == "" {
		return "", fmt.Errorf("response carried no session id")
	}
	return envelope.Data.Session.ID, nil
}

func fire(ctx context.Context, client *http.Client, method, url, body, token string) (int, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(profile string) string {
	p := strings.ToLower(strings.TrimSpace(profile))
	if p == "" {
		return "mixed"
	}
	return p
}
