package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"   // postgres
	_ "modernc.org/sqlite" // sqlite（纯 Go，无 cgo）
)

// SQL 用一张 kv 表保存全部 key。
// sqlite 与 postgres 的 upsert 语法一致，只有占位符不同。
//
// 规则：
// - 只读模式不建表、不写入：Set 返回 ErrReadOnly
type SQL struct {
	db       *sql.DB
	getQuery string
	setQuery string
	readOnly bool
}

var _ Store = (*SQL)(nil)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteFileName 是 sqlite 后端在数据目录下的文件名。
const SQLiteFileName = "filmfiesta.db"

// OpenSQLite 打开（必要时创建）<dataDir>/filmfiesta.db。
// readOnly 时以 mode=ro 打开且不触碰文件系统；数据库文件不存在则返回一个空的只读存储。
func OpenSQLite(ctx context.Context, dataDir string, readOnly bool) (Store, error) {
	path := filepath.Join(dataDir, SQLiteFileName)
	if readOnly {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return emptyReadOnly{}, nil
		}
		db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("打开 sqlite 失败：%w", err)
		}
		db.SetMaxOpenConns(1)
		return newSQL(ctx, db, sqliteGet, sqliteSet, true)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败：%w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败：%w", err)
	}
	// sqlite 单写者：连接数设为 1，避免 SQLITE_BUSY。
	db.SetMaxOpenConns(1)
	return newSQL(ctx, db, sqliteGet, sqliteSet, false)
}

const (
	sqliteGet = `SELECT value FROM kv WHERE key = ?`
	sqliteSet = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
)

// OpenPostgres 连接 dsn 指定的 postgres 实例。
func OpenPostgres(ctx context.Context, dsn string, readOnly bool) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn 不能为空")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 postgres 失败：%w", err)
	}
	return newSQL(ctx, db,
		`SELECT value FROM kv WHERE key = $1`,
		`INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		readOnly,
	)
}

func newSQL(ctx context.Context, db *sql.DB, getQuery, setQuery string, readOnly bool) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败：%w", err)
	}
	if !readOnly {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("初始化 schema 失败：%w", err)
		}
	}
	return &SQL{db: db, getQuery: getQuery, setQuery: setQuery, readOnly: readOnly}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	var v string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	_, err := s.db.ExecContext(ctx, s.setQuery, key, string(value))
	return err
}

func (s *SQL) Close() error {
	return s.db.Close()
}
