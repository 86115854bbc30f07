package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Manager owns the database handle and the repositories built on it
type Manager struct {
	db    *bun.DB
	users *UserRepository
}

// Open connects to the SQLite database at dsn. The pool holds a single
// connection so in-memory databases are shared by every query.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:    db,
		users: NewUserRepository(db),
	}
}

// Migrate creates the schema if it does not exist
func (m *Manager) Migrate(ctx context.Context) error {
	_, err := m.db.NewCreateTable().
		Model((*UserModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Users() *UserRepository {
	return m.users
}

func (m *Manager) Close() error {
	return m.db.Close()
}
