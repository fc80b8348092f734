package handler

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Pinger is implemented by the user directory and the file service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness, backend connectivity and host stats.
type HealthHandler struct {
	Store       Pinger
	Objects     Pinger
	StoreDriver string
	Bucket      string
	Version     string
	Env         string
	Log         zerolog.Logger

	started time.Time
}

func NewHealthHandler(store, objects Pinger, storeDriver, bucket, version, env string, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		Store:       store,
		Objects:     objects,
		StoreDriver: storeDriver,
		Bucket:      bucket,
		Version:     version,
		Env:         env,
		Log:         log,
		started:     time.Now(),
	}
}

const pingTimeout = 2 * time.Second

func (h *HealthHandler) Health(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]string{
		"status":      "healthy",
		"version":     h.Version,
		"environment": h.Env,
	}, "Health check successful")
}

// probe pings p and renders the result under name. A failed ping is a 503
// with success=false; the error itself is only logged.
func (h *HealthHandler) probe(c echo.Context, name string, p Pinger, details map[string]any) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		h.Log.Warn().Err(err).Str("probe", name).Msg("health probe failed")
		return c.JSON(http.StatusServiceUnavailable, envelope{
			Success:   false,
			Data:      map[string]any{name: map[string]any{"connected": false}},
			Message:   name + " unhealthy",
			Timestamp: time.Now().UTC(),
		})
	}
	details["connected"] = true
	return respond(c, http.StatusOK, map[string]any{name: details}, name+" healthy")
}

func (h *HealthHandler) DB(c echo.Context) error {
	return h.probe(c, "database", h.Store, map[string]any{"driver": h.StoreDriver})
}

func (h *HealthHandler) Storage(c echo.Context) error {
	return h.probe(c, "storage", h.Objects, map[string]any{"bucket": h.Bucket})
}

// cpuSampleInterval is how long host and process CPU usage are measured.
const cpuSampleInterval = 200 * time.Millisecond

// System reports host resources and figures for this process. A stat the
// platform cannot provide is rendered as null.
func (h *HealthHandler) System(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	return respond(c, http.StatusOK, map[string]any{
		"os":        h.osInfo(ctx),
		"resources": h.resources(ctx),
		"process":   h.process(ctx),
		"runtime":   h.runtimeInfo(),
	}, "System info fetched successfully")
}

func (h *HealthHandler) unavailable(stat string, err error) {
	h.Log.Debug().Err(err).Str("stat", stat).Msg("system stat unavailable")
}

func (h *HealthHandler) osInfo(ctx context.Context) map[string]any {
	out := map[string]any{
		"system":     runtime.GOOS,
		"machine":    runtime.GOARCH,
		"go_version": runtime.Version(),
		"hostname":   nil,
		"platform":   nil,
		"version":    nil,
		"release":    nil,
	}
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		h.unavailable("host", err)
		return out
	}
	out["hostname"] = info.Hostname
	out["platform"] = info.Platform
	out["version"] = info.PlatformVersion
	out["release"] = info.KernelVersion
	return out
}

func (h *HealthHandler) resources(ctx context.Context) map[string]any {
	out := map[string]any{
		"cpu_percent":      nil,
		"cpu_count":        runtime.NumCPU(),
		"memory_total":     nil,
		"memory_available": nil,
		"memory_percent":   nil,
		"disk_usage":       nil,
	}
	if pct, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false); err != nil || len(pct) == 0 {
		h.unavailable("cpu_percent", err)
	} else {
		out["cpu_percent"] = pct[0]
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		out["cpu_count"] = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		h.unavailable("memory", err)
	} else {
		out["memory_total"] = vm.Total
		out["memory_available"] = vm.Available
		out["memory_percent"] = vm.UsedPercent
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err != nil {
		h.unavailable("disk", err)
	} else {
		out["disk_usage"] = map[string]any{
			"total":   du.Total,
			"used":    du.Used,
			"free":    du.Free,
			"percent": du.UsedPercent,
		}
	}
	return out
}

func (h *HealthHandler) process(ctx context.Context) map[string]any {
	pid := os.Getpid()
	out := map[string]any{
		"pid":            pid,
		"name":           nil,
		"status":         nil,
		"create_time":    nil,
		"cpu_percent":    nil,
		"memory_info":    nil,
		"open_files":     nil,
		"connections":    nil,
		"started_at":     h.started.UTC(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		h.unavailable("process", err)
		return out
	}
	if name, err := p.NameWithContext(ctx); err == nil {
		out["name"] = name
	}
	if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
		out["status"] = status[0]
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil {
		out["create_time"] = time.UnixMilli(ms).UTC()
	}
	if pct, err := p.PercentWithContext(ctx, cpuSampleInterval); err == nil {
		out["cpu_percent"] = pct
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err != nil {
		h.unavailable("process_memory", err)
	} else {
		out["memory_info"] = map[string]any{"rss": mi.RSS, "vms": mi.VMS}
	}
	if files, err := p.OpenFilesWithContext(ctx); err == nil {
		out["open_files"] = len(files)
	}
	if conns, err := p.ConnectionsWithContext(ctx); err == nil {
		out["connections"] = len(conns)
	}
	return out
}

func (h *HealthHandler) runtimeInfo() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]any{
		"gomaxprocs": runtime.GOMAXPROCS(0),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": ms.HeapAlloc,
		"heap_sys":   ms.HeapSys,
		"num_gc":     ms.NumGC,
	}
}
