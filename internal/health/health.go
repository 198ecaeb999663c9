// Package health отдаёт liveness, readiness и подробный статус компонентов витрины.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// severity упорядочивает статусы: общий статус равен худшему из проверок.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Critical   bool   `json:"critical"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

type probe struct {
	checker  Checker
	critical bool
}

// Handler опрашивает зарегистрированные компоненты.
type Handler struct {
	mu           sync.RWMutex
	probes       map[string]probe
	version      string
	startedAt    time.Time
	checkTimeout time.Duration
}

// NewHandler создаёт handler без проверок.
func NewHandler(version string) *Handler {
	return &Handler{
		probes:       map[string]probe{},
		version:      version,
		startedAt:    time.Now(),
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterChecker регистрирует критичную проверку: её отказ делает сервис unhealthy.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	h.probes[name] = probe{checker: checker, critical: true}
	h.mu.Unlock()
}

// RegisterOptional регистрирует некритичную проверку: её отказ даёт degraded.
func (h *Handler) RegisterOptional(name string, checker Checker) {
	h.mu.Lock()
	h.probes[name] = probe{checker: checker, critical: false}
	h.mu.Unlock()
}

// Run параллельно выполняет проверки с общим таймаутом и сводит их в общий статус.
func (h *Handler) Run(ctx context.Context) Response {
	h.mu.RLock()
	probes := maps.Clone(h.probes)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]Check, len(probes))
	)
	for name, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := p.checker.Check(ctx)
			check.Critical = p.critical
			if !p.critical && check.Status == StatusUnhealthy {
				check.Status = StatusDegraded
			}
			mu.Lock()
			checks[name] = check
			mu.Unlock()
		}()
	}
	wg.Wait()

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status.severity() > overall.severity() {
			overall = check.Status
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
}

// ServeHTTP отдаёт подробный статус; 503 только при отказе критичного компонента.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Run(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(response.Status))
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler отвечает "ready", пока все критичные компоненты доступны.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	code := httpStatus(h.Run(r.Context()).Status)
	body := "ready"
	if code != http.StatusOK {
		body = "not ready"
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// LivenessHandler всегда отвечает 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// SimpleChecker превращает функцию проверки в Checker.
type SimpleChecker struct {
	name  string
	probe func(ctx context.Context) error
}

// NewSimpleChecker создаёт проверку; ошибка probe означает unhealthy.
func NewSimpleChecker(name string, probe func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{name: name, probe: probe}
}

// Check вызывает probe и замеряет длительность.
func (c *SimpleChecker) Check(ctx context.Context) Check {
	started := time.Now()
	err := c.probe(ctx)

	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}
