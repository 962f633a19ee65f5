package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"
)

type Params struct {
	fx.In
	SQLiteConfig config.SQLiteConfig
	Lifecycle    fx.Lifecycle `optional:"true"`
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repo struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

func NewRepository(params Params) (domain.Repository, error) {
	db, err := OpenSQLite(params.SQLiteConfig)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if params.Lifecycle != nil {
		params.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
	}
	return &repo{db: db, q: db}, nil
}

// OpenSQLite opens the store. Every transaction starts with BEGIN IMMEDIATE
// so concurrent writers serialize on the database lock instead of failing
// on upgrade.
func OpenSQLite(cfg config.SQLiteConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	busyTimeout := cfg.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.Itoa(busyTimeout))
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", cfg.Path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite, err: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite, err: %w", err)
	}
	return db, nil
}

func (r *repo) Close() error {
	return r.db.Close()
}

func (r *repo) WithTx(ctx context.Context, fn func(ctx context.Context, repo domain.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx, err: %w", err)
	}
	txRepo := &repo{db: r.db, q: tx, tx: tx}
	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Logger(ctx).Error().Err(rbErr).Msg("rollback tx failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx, err: %w", err)
	}
	return nil
}

// mutate runs fn in a transaction and bumps the updates counter with it.
func (r *repo) mutate(ctx context.Context, fn func(ctx context.Context, q querier) error) error {
	return r.WithTx(ctx, func(ctx context.Context, txRepo domain.Repository) error {
		tr := txRepo.(*repo)
		if err := fn(ctx, tr.q); err != nil {
			return err
		}
		return incrCounter(ctx, tr.q, domain.UpdatesCounter)
	})
}

func incrCounter(ctx context.Context, q querier, name string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO counters (name, count) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET count = count + 1`, name)
	if err != nil {
		return fmt.Errorf("increment counter %s, err: %w", name, err)
	}
	return nil
}

func (r *repo) GetCounter(ctx context.Context, name string) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT count FROM counters WHERE name = ?`, name).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %s, err: %w", name, err)
	}
	return count, nil
}
