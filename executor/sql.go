package executor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/hatlonely/daox/cfg"
)

type SQLOptions struct {
	Driver   string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`
}

// SQL 基于 database/sql 的 Executor 实现
type SQL struct {
	db *sql.DB
}

// NewSQLWithOptions 根据选项创建 SQL 执行器，创建时会 Ping 检查连通性
func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}
	if err := cfg.ValidateStruct(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}

	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "sql.Open failed")
	}

	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "db.Ping failed")
	}

	return &SQL{db: db}, nil
}

// NewSQLWithDB 复用已有连接池创建 SQL 执行器
func NewSQLWithDB(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Execute(ctx context.Context, query string, args []any) (int64, error) {
	return execute(ctx, s.db, query, args)
}

func (s *SQL) ExecuteBatch(ctx context.Context, query string, argsList [][]any) ([]int64, error) {
	return executeBatch(ctx, s.db, query, argsList)
}

func (s *SQL) Query(ctx context.Context, query string, args []any, scan func(rows Rows) error) error {
	return doQuery(ctx, s.db, query, args, scan)
}

// BeginTx 开启事务，返回事务作用域内的执行器。
// 引擎本身不开启事务，需要整批原子性时由调用方用事务包住批量操作。
func (s *SQL) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "db.BeginTx failed")
	}
	return &Tx{tx: tx}, nil
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚，否则提交
func (s *SQL) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// Tx 事务作用域内的 Executor 实现
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Execute(ctx context.Context, query string, args []any) (int64, error) {
	return execute(ctx, t.tx, query, args)
}

func (t *Tx) ExecuteBatch(ctx context.Context, query string, argsList [][]any) ([]int64, error) {
	return executeBatch(ctx, t.tx, query, argsList)
}

func (t *Tx) Query(ctx context.Context, query string, args []any, scan func(rows Rows) error) error {
	return doQuery(ctx, t.tx, query, args, scan)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// conn 抽象 *sql.DB 和 *sql.Tx 的公共能力
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func execute(ctx context.Context, c conn, query string, args []any) (int64, error) {
	result, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// executeBatch 语句只准备一次，逐组参数执行
func executeBatch(ctx context.Context, c conn, query string, argsList [][]any) ([]int64, error) {
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, errors.WithMessage(err, "prepare failed")
	}
	defer stmt.Close()

	counts := make([]int64, 0, len(argsList))
	for _, args := range argsList {
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return counts, err
		}
		count, err := result.RowsAffected()
		if err != nil {
			return counts, err
		}
		counts = append(counts, count)
	}
	return counts, nil
}

func doQuery(ctx context.Context, c conn, query string, args []any, scan func(rows Rows) error) error {
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}
	return rows.Err()
}
