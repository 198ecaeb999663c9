// Команда loadtest нагружает gRPC CartService сценариями работы с корзиной.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
)

type loadMode string

const (
	// modeAdd — одно добавление товара.
	modeAdd loadMode = "add"
	// modeCart — добавление двух товаров, изменение количества и чтение корзины.
	modeCart loadMode = "cart"
	// modeCartClear — сценарий modeCart с очисткой корзины в конце.
	modeCartClear loadMode = "cart-clear"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	products    []string
	sessionTag  string
	outputPath  string
}

// cartCaller — вызов метода CartService; реализуется grpcsvc.CartServiceClient.
type cartCaller interface {
	Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error)
}

func parseConfig(args []string) (config, error) {
	var (
		cfg         config
		modeValue   string
		productsRaw string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "scenarios in count mode; with -duration an optional upper bound")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeCart), "load mode: add | cart | cart-clear")
	fs.StringVar(&productsRaw, "products", "ext-1,ext-2", "comma-separated catalog product ids, at least two for cart modes")
	fs.StringVar(&cfg.sessionTag, "session-tag", "load", "session id prefix")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	for _, id := range strings.Split(productsRaw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.products = append(cfg.products, id)
		}
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case len(cfg.products) == 0:
		return cfg, errors.New("products are required")
	case cfg.mode != modeAdd && len(cfg.products) < 2:
		return cfg, fmt.Errorf("mode %s needs at least two products", cfg.mode)
	case strings.TrimSpace(cfg.sessionTag) == "":
		return cfg, errors.New("session-tag is required")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeAdd, modeCart, modeCartClear:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]cartCaller, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewCartServiceClient(conn))
	}
	result := runLoad(cfg, clients)
	for _, conn := range conns {
		_ = conn.Close()
	}

	printReport(os.Stdout, result, runTarget(cfg), cfg.mode)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// runLoad распределяет сценарии по воркерам и собирает отчёт.
func runLoad(cfg config, clients []cartCaller) report {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(client cartCaller) {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(client, cfg, id, runID, col)
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario выполняет сценарий в отдельной сессии и проверяет итоговое число товаров.
func runScenario(client cartCaller, cfg config, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), scenarioCode)
	}()

	session := fmt.Sprintf("%s-%s-%d", cfg.sessionTag, runID, index)
	call := func(method string, req map[string]any) (*structpb.Struct, error) {
		req[grpcsvc.FieldSessionID] = session
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
		defer cancel()

		resp, err := client.Call(ctx, method, req)
		col.record(method, time.Since(start), status.Code(err))
		return resp, err
	}
	fail := func(err error) error {
		scenarioCode = status.Code(err)
		if scenarioCode == codes.OK {
			scenarioCode = codes.Unknown
		}
		return err
	}

	first := cfg.products[index%len(cfg.products)]
	resp, err := call("AddItem", map[string]any{grpcsvc.FieldProductID: first, grpcsvc.FieldQuantity: 2})
	if err != nil {
		return fail(err)
	}
	if cfg.mode == modeAdd {
		return expectTotalItems(resp, 2, fail)
	}

	second := cfg.products[(index+1)%len(cfg.products)]
	if _, err := call("AddItem", map[string]any{grpcsvc.FieldProductID: second}); err != nil {
		return fail(err)
	}
	if _, err := call("UpdateQuantity", map[string]any{grpcsvc.FieldProductID: first, grpcsvc.FieldQuantity: 1}); err != nil {
		return fail(err)
	}
	if resp, err = call("GetCart", map[string]any{}); err != nil {
		return fail(err)
	}
	if err := expectTotalItems(resp, 2, fail); err != nil || cfg.mode != modeCartClear {
		return err
	}

	if resp, err = call("ClearCart", map[string]any{}); err != nil {
		return fail(err)
	}
	return expectTotalItems(resp, 0, fail)
}

func expectTotalItems(resp *structpb.Struct, want int, fail func(error) error) error {
	got := int(resp.GetFields()["total_items"].GetNumberValue())
	if got != want {
		return fail(status.Errorf(codes.DataLoss, "total_items=%d, want %d", got, want))
	}
	return nil
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}
