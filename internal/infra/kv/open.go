package kv

import (
	"context"
	"fmt"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open 按 driver 构造存储。dataDir 供 file/sqlite 使用，dsn 供 postgres 使用。
// readOnly 对 file/sqlite/postgres 都生效：不建目录、不建表，Set 返回 ErrReadOnly。
func Open(ctx context.Context, driver, dataDir, dsn string, readOnly bool) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFile(dataDir, readOnly), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dataDir, readOnly)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, readOnly)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("未知 storage driver：%q", driver)
	}
}
