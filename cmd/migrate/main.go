// Команда migrate применяет и откатывает встроенные SQL-миграции витрины.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	dsnEnv         = "STOREFRONT_POSTGRES_DSN"
)

type direction string

const (
	directionUp     direction = "up"
	directionDown   direction = "down"
	directionStatus direction = "status"
	directionList   direction = "list"
)

type config struct {
	direction direction
	steps     int
	dsn       string
	timeout   time.Duration
}

// migrator — операции postgres.Store, нужные команде.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (int64, int, error)
	ListMigrations(ctx context.Context) ([]postgres.MigrationInfo, error)
}

var openStore = func(ctx context.Context, dsn string) (migrator, func() error, error) {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	store, closeFn, err := openStore(ctx, cfg.dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer func() { _ = closeFn() }()

	if err := run(ctx, cfg, store, os.Stdout); err != nil {
		fail("%v", err)
	}
}

func parseFlags(args []string, getenv func(string) string) (config, error) {
	var (
		cfg config
		dir string
	)

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&dir, "direction", string(directionUp), "migration direction: up|down|status|list")
	fs.IntVar(&cfg.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&cfg.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+dsnEnv+")")
	fs.DurationVar(&cfg.timeout, "timeout", defaultTimeout, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.direction = direction(strings.ToLower(strings.TrimSpace(dir)))
	switch cfg.direction {
	case directionUp, directionDown, directionStatus, directionList:
	default:
		return cfg, fmt.Errorf("unsupported direction: %s (use up|down|status|list)", dir)
	}
	if cfg.steps < 0 {
		return cfg, errors.New("steps must be >= 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}

	cfg.dsn = strings.TrimSpace(cfg.dsn)
	if cfg.dsn == "" {
		cfg.dsn = strings.TrimSpace(getenv(dsnEnv))
	}
	if cfg.dsn == "" {
		return cfg, errors.New(dsnEnv + " (or -dsn) is required")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config, store migrator, out io.Writer) error {
	switch cfg.direction {
	case directionUp:
		if err := store.MigrateUp(ctx, cfg.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return printStatus(ctx, store, out, "migrate up ok")
	case directionDown:
		steps := cfg.steps
		if steps == 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return printStatus(ctx, store, out, "migrate down ok")
	case directionStatus:
		return printStatus(ctx, store, out, "migration status")
	case directionList:
		migrations, err := store.ListMigrations(ctx)
		if err != nil {
			return fmt.Errorf("list migrations failed: %w", err)
		}
		for _, m := range migrations {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			_, _ = fmt.Fprintf(out, "%04d %-40s %s\n", m.Version, m.Name, state)
		}
		return nil
	default:
		return fmt.Errorf("unsupported direction: %s", cfg.direction)
	}
}

func printStatus(ctx context.Context, store migrator, out io.Writer, prefix string) error {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "%s: version=%d applied=%d\n", prefix, version, count)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
