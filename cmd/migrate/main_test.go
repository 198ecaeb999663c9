package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

type fakeMigrator struct {
	upSteps   []int
	downSteps []int
	version   int64
	applied   int
	list      []postgres.MigrationInfo
	err       error
	statusErr error
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.err
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return f.err
}

func (f *fakeMigrator) MigrationStatus(context.Context) (int64, int, error) {
	return f.version, f.applied, f.statusErr
}

func (f *fakeMigrator) ListMigrations(context.Context) ([]postgres.MigrationInfo, error) {
	return f.list, f.err
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-dsn", " postgres://flag "}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, directionUp, cfg.direction)
	assert.Equal(t, "postgres://flag", cfg.dsn)
	assert.Equal(t, defaultTimeout, cfg.timeout)

	cfg, err = parseFlags([]string{"-direction", " LIST "}, env(map[string]string{dsnEnv: "postgres://env"}))
	require.NoError(t, err)
	assert.Equal(t, directionList, cfg.direction)
	assert.Equal(t, "postgres://env", cfg.dsn)
}

func TestParseFlagsErrors(t *testing.T) {
	withDSN := env(map[string]string{dsnEnv: "postgres://env"})

	_, err := parseFlags(nil, env(nil))
	require.ErrorContains(t, err, dsnEnv)

	_, err = parseFlags([]string{"-direction", "sideways"}, withDSN)
	require.ErrorContains(t, err, "unsupported direction")

	_, err = parseFlags([]string{"-steps", "-1"}, withDSN)
	require.Error(t, err)

	_, err = parseFlags([]string{"-timeout", "0s"}, withDSN)
	require.Error(t, err)

	_, err = parseFlags([]string{"-unknown"}, withDSN)
	require.Error(t, err)
}

func TestRunUpAndStatus(t *testing.T) {
	store := &fakeMigrator{version: 2, applied: 2}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), config{direction: directionUp}, store, &out))
	assert.Equal(t, []int{0}, store.upSteps)
	assert.Equal(t, "migrate up ok: version=2 applied=2\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), config{direction: directionStatus}, store, &out))
	assert.Equal(t, "migration status: version=2 applied=2\n", out.String())
}

func TestRunDownDefaultsToOneStep(t *testing.T) {
	store := &fakeMigrator{version: 1, applied: 1}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), config{direction: directionDown}, store, &out))
	require.NoError(t, run(context.Background(), config{direction: directionDown, steps: 2}, store, &out))
	assert.Equal(t, []int{1, 2}, store.downSteps)
	assert.Contains(t, out.String(), "migrate down ok: version=1 applied=1")
}

func TestRunList(t *testing.T) {
	store := &fakeMigrator{list: []postgres.MigrationInfo{
		{Version: 1, Name: "init", Applied: true},
		{Version: 2, Name: "outbox"},
	}}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), config{direction: directionList}, store, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "0001 init"))
	assert.True(t, strings.HasSuffix(lines[0], "applied"))
	assert.True(t, strings.HasSuffix(lines[1], "pending"))
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")
	var out bytes.Buffer

	err := run(context.Background(), config{direction: directionUp}, &fakeMigrator{err: boom}, &out)
	require.ErrorIs(t, err, boom)

	err = run(context.Background(), config{direction: directionStatus}, &fakeMigrator{statusErr: boom}, &out)
	require.ErrorContains(t, err, "migration status failed")

	err = run(context.Background(), config{direction: directionList}, &fakeMigrator{err: boom}, &out)
	require.ErrorContains(t, err, "list migrations failed")

	err = run(context.Background(), config{direction: "sideways"}, &fakeMigrator{}, &out)
	require.Error(t, err)
}

func TestRunAgainstPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("STOREFRONT_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeFn, err := openStore(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	var out bytes.Buffer
	for _, dir := range []direction{directionUp, directionList, directionDown, directionUp} {
		require.NoError(t, run(ctx, config{direction: dir}, store, &out), "direction %s", dir)
	}
	assert.Contains(t, out.String(), "applied")
}

func TestFailExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 42)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.NotZero(t, exitErr.ExitCode())
}
