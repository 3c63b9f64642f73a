package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const templateDB = "lingualance_template"

// One container per test binary. Each test gets its own database cloned from a
// migrated template, so tests stay isolated without re-running migrations.
// The container is reaped by testcontainers when the binary exits.
var shared struct {
	once  sync.Once
	err   error
	base  *url.URL
	admin *sql.DB
	// CREATE DATABASE ... TEMPLATE fails if the template is being copied concurrently.
	cloneMu sync.Mutex
}

func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	shared.once.Do(func() { shared.err = startShared(ctx) })
	if shared.err != nil {
		t.Fatalf("start test postgres: %v", shared.err)
	}

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	shared.cloneMu.Lock()
	_, err := shared.admin.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateDB))
	shared.cloneMu.Unlock()
	if err != nil {
		t.Fatalf("clone template database: %v", err)
	}

	db, err := sql.Open("postgres", dsnFor(name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		if _, err := shared.admin.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name)); err != nil {
			t.Logf("drop test database %s: %v", name, err)
		}
	})

	return db
}

func startShared(ctx context.Context) error {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(templateDB),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("run container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("connection string: %w", err)
	}
	shared.base, err = url.Parse(connStr)
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}

	tmpl, err := sql.Open("postgres", dsnFor(templateDB))
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	err = runMigrations(ctx, tmpl)
	// The template must have no open connections before it can be cloned.
	tmpl.Close()
	if err != nil {
		return err
	}

	shared.admin, err = sql.Open("postgres", dsnFor("postgres"))
	if err != nil {
		return fmt.Errorf("open admin: %w", err)
	}
	return nil
}

func dsnFor(database string) string {
	u := *shared.base
	u.Path = "/" + database
	return u.String()
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	dir := findMigrationsDir()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, f := range ups {
		content, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}
	return nil
}

// go test runs in the package directory, so walk up to the module root.
func findMigrationsDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for range 10 {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return "migrations"
}
