package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var (
	_ ports.SocialGraph = (*SQLiteGraph)(nil)
	_ Writer            = (*SQLiteGraph)(nil)
)

const sqliteStoreName = "sqlite"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteGraph persists the social graph in a SQLite database. Each
// friendship is stored in both directions so Friends is a single indexed
// lookup.
type SQLiteGraph struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the embedded schema.
func OpenSQLite(path string) (*SQLiteGraph, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteGraph{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)
	for _, name := range names {
		stmt, err := migrationsFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (g *SQLiteGraph) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// UpsertPerson implements Writer.
func (g *SQLiteGraph) UpsertPerson(ctx context.Context, p domain.Person) error {
	if strings.TrimSpace(p.ID) == "" {
		return ports.NewStoreError(sqliteStoreName, "UpsertPerson", fmt.Errorf("person id is required"))
	}
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO people (id, name, gender, age, city) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, gender = excluded.gender,
		   age = excluded.age, city = excluded.city`,
		p.ID, p.Name, string(p.Gender), p.Age, p.City,
	)
	if err != nil {
		return ports.NewStoreError(sqliteStoreName, "UpsertPerson", err)
	}
	return nil
}

// AddFriendship implements Writer. Both people must already exist.
func (g *SQLiteGraph) AddFriendship(ctx context.Context, a, b string) error {
	if a == b {
		return ports.NewStoreError(sqliteStoreName, "AddFriendship", fmt.Errorf("%s cannot befriend themselves", a))
	}
	for _, id := range []string{a, b} {
		if _, err := g.Person(ctx, id); err != nil {
			return err
		}
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.NewStoreError(sqliteStoreName, "AddFriendship", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO friendships (person_id, friend_id) VALUES (?, ?)`,
			pair[0], pair[1],
		); err != nil {
			return ports.NewStoreError(sqliteStoreName, "AddFriendship", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ports.NewStoreError(sqliteStoreName, "AddFriendship", err)
	}
	return nil
}

// LivesIn sets the city of an existing person.
func (g *SQLiteGraph) LivesIn(ctx context.Context, id, city string) error {
	res, err := g.db.ExecContext(ctx, `UPDATE people SET city = ? WHERE id = ?`, city, id)
	if err != nil {
		return ports.NewStoreError(sqliteStoreName, "LivesIn", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.NewStoreError(sqliteStoreName, "LivesIn", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
	}
	return nil
}

// Person implements ports.SocialGraph.
func (g *SQLiteGraph) Person(ctx context.Context, id string) (domain.Person, error) {
	row := g.db.QueryRowContext(ctx, `SELECT id, name, gender, age, city FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Person{}, ports.NewStoreError(sqliteStoreName, "Person", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
	}
	if err != nil {
		return domain.Person{}, ports.NewStoreError(sqliteStoreName, "Person", err)
	}
	return p, nil
}

// Friends implements ports.SocialGraph.
func (g *SQLiteGraph) Friends(ctx context.Context, id string) ([]string, error) {
	if _, err := g.Person(ctx, id); err != nil {
		return nil, err
	}

	rows, err := g.db.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE person_id = ? ORDER BY friend_id`, id)
	if err != nil {
		return nil, ports.NewStoreError(sqliteStoreName, "Friends", err)
	}
	defer rows.Close()

	friends := make([]string, 0)
	for rows.Next() {
		var friend string
		if err := rows.Scan(&friend); err != nil {
			return nil, ports.NewStoreError(sqliteStoreName, "Friends", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewStoreError(sqliteStoreName, "Friends", err)
	}
	return friends, nil
}

// People implements ports.SocialGraph.
func (g *SQLiteGraph) People(ctx context.Context) ([]domain.Person, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, name, gender, age, city FROM people ORDER BY id`)
	if err != nil {
		return nil, ports.NewStoreError(sqliteStoreName, "People", err)
	}
	defer rows.Close()

	people := make([]domain.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, ports.NewStoreError(sqliteStoreName, "People", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewStoreError(sqliteStoreName, "People", err)
	}
	return people, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(s scanner) (domain.Person, error) {
	var (
		p      domain.Person
		gender string
	)
	if err := s.Scan(&p.ID, &p.Name, &gender, &p.Age, &p.City); err != nil {
		return domain.Person{}, err
	}
	p.Gender = domain.Gender(gender)
	return p, nil
}
