package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc/codes"
)

// scenarioMethod — псевдометод, под которым учитываются сценарии целиком.
const scenarioMethod = "scenario"

// latencySummary — распределение задержек в миллисекундах.
type latencySummary struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

// series накапливает вызовы одного метода.
type series struct {
	byCode map[codes.Code]int64
	ms     []float64
}

func (s *series) add(latency time.Duration, code codes.Code) {
	s.byCode[code]++
	s.ms = append(s.ms, float64(latency.Microseconds())/1000)
}

func (s *series) summarize() methodReport {
	var calls int64
	named := make(map[string]int64, len(s.byCode))
	for code, n := range s.byCode {
		calls += n
		named[code.String()] = n
	}
	ok := s.byCode[codes.OK]
	return methodReport{
		Calls:     calls,
		Success:   ok,
		Failed:    calls - ok,
		ErrorRate: ratio(calls-ok, calls),
		Codes:     named,
		LatencyMs: buildLatencySummary(s.ms),
	}
}

// collector потокобезопасно собирает результаты вызовов по методам.
type collector struct {
	mu     sync.Mutex
	series map[string]*series
}

func newCollector() *collector {
	return &collector{series: map[string]*series{}}
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.series[method]
	if s == nil {
		s = &series{byCode: map[codes.Code]int64{}}
		c.series[method] = s
	}
	s.add(latency, code)
}

func (c *collector) snapshot(method string) (methodReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.series[method]
	if s == nil {
		return methodReport{}, false
	}
	return s.summarize(), true
}

func (c *collector) buildReport(startedAt time.Time, elapsed time.Duration) report {
	c.mu.Lock()
	methods := make(map[string]methodReport, len(c.series))
	for method, s := range c.series {
		methods[method] = s.summarize()
	}
	c.mu.Unlock()

	scenarios := methods[scenarioMethod]
	result := report{
		StartedAt:         startedAt.UTC(),
		DurationSeconds:   elapsed.Seconds(),
		TotalScenarios:    scenarios.Calls,
		SuccessScenarios:  scenarios.Success,
		FailedScenarios:   scenarios.Failed,
		ErrorRate:         scenarios.ErrorRate,
		ScenarioLatencyMs: scenarios.LatencyMs,
		Methods:           methods,
	}
	if elapsed > 0 {
		result.RPS = float64(scenarios.Calls) / elapsed.Seconds()
	}
	return result
}

// printReport печатает сводку и таблицу по методам.
func printReport(w io.Writer, result report, target string, mode loadMode) {
	l := result.ScenarioLatencyMs
	fmt.Fprintf(w, "mode=%s run=%s scenarios=%d ok=%d failed=%d error_rate=%.4f\n",
		mode, target, result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate)
	fmt.Fprintf(w, "elapsed=%.2fs rps=%.2f latency_ms min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.DurationSeconds, result.RPS, l.Min, l.Avg, l.P50, l.P95, l.P99, l.Max)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCALLS\tFAILED\tP50 MS\tP95 MS")
	for _, method := range slices.Sorted(maps.Keys(result.Methods)) {
		if method == scenarioMethod {
			continue
		}
		m := result.Methods[method]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\n", method, m.Calls, m.Failed, m.LatencyMs.P50, m.LatencyMs.P95)
	}
	_ = tw.Flush()
}

// writeJSONReport пишет отчёт в файл внутри текущего каталога.
func writeJSONReport(path string, result report) error {
	clean := filepath.Clean(path)
	switch {
	case clean == "." || clean == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	// #nosec G306 -- report is a local artifact of a manual run.
	return os.WriteFile(clean, append(data, '\n'), 0o644)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}
	return latencySummary{
		Min: sorted[0],
		Avg: total / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
		Max: sorted[len(sorted)-1],
	}
}

// percentile интерполирует между соседними рангами отсортированной выборки.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
