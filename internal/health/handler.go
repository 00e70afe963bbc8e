package health

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"perpdesk/internal/httputil"

	"github.com/jackc/pgx/v5/pgxpool"
)

const probeTimeout = 2 * time.Second

// Pinger is a dependency that can be probed for reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	pool      *pgxpool.Pool
	node      Pinger
	startedAt time.Time
	httpAddr  string
	signer    string
	listeners func() int
}

// NewHandler builds the health endpoints. pool may be nil when the journal
// is disabled; listeners reports connected WebSocket clients.
func NewHandler(pool *pgxpool.Pool, node Pinger, startedAt time.Time, httpAddr, signer string, listeners func() int) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		pool:      pool,
		node:      node,
		startedAt: start,
		httpAddr:  strings.TrimSpace(httpAddr),
		signer:    signer,
		listeners: listeners,
	}
}

type probe struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	liveResponse
	Database probe `json:"database"`
	Node     probe `json:"node"`
}

type fullResponse struct {
	readinessResponse
	App     appStats     `json:"app"`
	Runtime runtimeStats `json:"runtime"`
	Pool    *poolStats   `json:"pool,omitempty"`
	Build   buildStats   `json:"build"`
}

type appStats struct {
	HTTPAddr  string `json:"http_addr"`
	Signer    string `json:"signer"`
	Listeners int    `json:"ws_listeners"`
	Hostname  string `json:"hostname"`
	PID       int    `json:"pid"`
}

type runtimeStats struct {
	GoVersion      string `json:"go_version"`
	Goroutines     int    `json:"goroutines"`
	GoMaxProcs     int    `json:"gomaxprocs"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
}

type poolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
	AcquireCount  int64 `json:"acquire_count"`
}

type buildStats struct {
	MainPath string `json:"main_path"`
	Version  string `json:"version"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) live(now time.Time) liveResponse {
	uptime := h.uptime(now)
	return liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	}
}

func run(ctx context.Context, p Pinger) probe {
	if p == nil {
		return probe{}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := p.Ping(ctx)
	cancel()
	out := probe{Configured: true, LatencyMs: time.Since(start).Milliseconds(), Reachable: err == nil}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func (h *Handler) ready(ctx context.Context) (readinessResponse, int) {
	resp := readinessResponse{liveResponse: h.live(time.Now().UTC())}
	if h.pool != nil {
		resp.Database = run(ctx, h.pool)
	}
	resp.Node = run(ctx, h.node)
	status := http.StatusOK
	if (resp.Database.Configured && !resp.Database.Reachable) || (resp.Node.Configured && !resp.Node.Reachable) {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	return resp, status
}

// Live does not probe any dependency.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.live(time.Now().UTC()))
}

// Ready probes the database and the chain node, answering 503 if either is down.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp, status := h.ready(r.Context())
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) Full(w http.ResponseWriter, r *http.Request) {
	ready, status := h.ready(r.Context())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := fullResponse{
		readinessResponse: ready,
		App: appStats{
			HTTPAddr: h.httpAddr,
			Signer:   h.signer,
			PID:      os.Getpid(),
		},
		Runtime: runtimeStats{
			GoVersion:      runtime.Version(),
			Goroutines:     runtime.NumGoroutine(),
			GoMaxProcs:     runtime.GOMAXPROCS(0),
			HeapAllocBytes: mem.HeapAlloc,
			SysBytes:       mem.Sys,
			NumGC:          mem.NumGC,
		},
	}
	if host, err := os.Hostname(); err == nil {
		resp.App.Hostname = host
	}
	if h.listeners != nil {
		resp.App.Listeners = h.listeners()
	}
	if h.pool != nil {
		stat := h.pool.Stat()
		resp.Pool = &poolStats{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
			AcquireCount:  stat.AcquireCount(),
		}
	}
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		resp.Build.MainPath = strings.TrimSpace(info.Main.Path)
		resp.Build.Version = strings.TrimSpace(info.Main.Version)
	}
	httputil.WriteJSON(w, status, resp)
}
