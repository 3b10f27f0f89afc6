package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	mapping "github.com/goliatone/go-mapping"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel names the mapping migrations inside a shared migrator.
	SourceLabel = "go-mapping"
)

// Source is the migration directory of one SQL dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Step is one numbered schema change with its up and down files.
type Step struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DialectForDriver maps a database/sql driver name to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
	}
}

// Sources returns the postgres and sqlite directories under root, or under
// the embedded migrations when root is nil. Postgres files sit at the top
// level and sqlite files in the sqlite/ subdirectory.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = mapping.GetMigrationsFS()
	}
	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: pathJoin(basePath, "sqlite"), FS: sqliteFS},
	}
	for _, source := range sources {
		if _, err := Steps(source.FS); err != nil {
			return nil, fmt.Errorf("migrations: %s (%s): %w", source.Dialect, source.Path, err)
		}
	}
	return sources, nil
}

// Steps pairs the NNNNN_name.up.sql and NNNNN_name.down.sql files of fsys.
// Versions must start at 1 and have no gaps, and every up needs a down.
func Steps(fsys fs.FS) ([]Step, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("no *.up.sql files")
	}
	slices.Sort(ups)

	steps := make([]Step, 0, len(ups))
	for i, up := range ups {
		stem := strings.TrimSuffix(up, ".up.sql")
		prefix, name, ok := strings.Cut(stem, "_")
		if !ok || name == "" {
			return nil, fmt.Errorf("%s: expected NNNNN_name.up.sql", up)
		}
		version, convErr := strconv.Atoi(prefix)
		if convErr != nil {
			return nil, fmt.Errorf("%s: invalid version prefix %q", up, prefix)
		}
		if version != i+1 {
			return nil, fmt.Errorf("%s: expected version %d", up, i+1)
		}
		down := stem + ".down.sql"
		if _, statErr := fs.Stat(fsys, down); statErr != nil {
			return nil, fmt.Errorf("%s: missing %s", up, down)
		}
		steps = append(steps, Step{Version: version, Name: name, Up: up, Down: down})
	}
	return steps, nil
}

// Migrations lists the embedded up files of a dialect in apply order.
func Migrations(dialect string) ([]string, error) {
	source, err := sourceFor(nil, dialect)
	if err != nil {
		return nil, err
	}
	steps, err := Steps(source.FS)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.Up)
	}
	return names, nil
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type registration struct {
	label    string
	dialects []string
	root     fs.FS
}

type Option func(*registration)

func WithSourceLabel(label string) Option {
	return func(r *registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.label = trimmed
		}
	}
}

// ForDialects limits registration to the named dialects.
func ForDialects(dialects ...string) Option {
	return func(r *registration) {
		var next []string
		for _, dialect := range dialects {
			dialect = strings.ToLower(strings.TrimSpace(dialect))
			if dialect != "" && !slices.Contains(next, dialect) {
				next = append(next, dialect)
			}
		}
		if len(next) > 0 {
			r.dialects = next
		}
	}
}

// WithRoot registers migrations from root instead of the embedded set.
func WithRoot(root fs.FS) Option {
	return func(r *registration) {
		if root != nil {
			r.root = root
		}
	}
}

// Register hands the migration directory of each selected dialect to
// registerFn and returns the sources it registered.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) ([]Source, error) {
	if registerFn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	reg := registration{
		label:    SourceLabel,
		dialects: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	sources, err := Sources(reg.root)
	if err != nil {
		return nil, err
	}
	registered := make([]Source, 0, len(reg.dialects))
	for _, source := range sources {
		if !slices.Contains(reg.dialects, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, reg.label, source.FS); err != nil {
			return registered, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
		registered = append(registered, source)
	}
	for _, dialect := range reg.dialects {
		if !slices.ContainsFunc(registered, func(s Source) bool { return s.Dialect == dialect }) {
			return registered, fmt.Errorf("migrations: unknown dialect %q", dialect)
		}
	}
	return registered, nil
}

func sourceFor(root fs.FS, dialect string) (Source, error) {
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	sources, err := Sources(root)
	if err != nil {
		return Source{}, err
	}
	for _, source := range sources {
		if source.Dialect == dialect {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: unknown dialect %q", dialect)
}

func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	sub, err := fs.Sub(root, "data/sql/migrations")
	if err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			if matches, _ := fs.Glob(sub, "*.sql"); len(matches) > 0 {
				return sub, "data/sql/migrations", nil
			}
		}
	}
	if matches, _ := fs.Glob(root, "*.sql"); len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: data/sql/migrations not found")
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
