package executor

import "context"

// Rows 一次查询的结果集，按行消费后丢弃
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
}

// Executor SQL 执行边界。
// 引擎只依赖这个接口执行参数化语句，连接池、事务边界、超时都由实现方负责。
// 参数支持驱动原生类型以及 database/sql 的带类型空值（sql.NullString 等），
// 这样绑定 NULL 时列类型信息不会丢失。
type Executor interface {
	// Execute 执行一条参数化语句，返回影响行数
	Execute(ctx context.Context, query string, args []any) (int64, error)

	// ExecuteBatch 用同一条语句批量执行多组参数，返回每组参数的影响行数。
	// 语句只准备一次，逐组执行，中途失败时已执行的部分不会回滚。
	ExecuteBatch(ctx context.Context, query string, argsList [][]any) ([]int64, error)

	// Query 执行查询，结果集交给 scan 回调消费
	Query(ctx context.Context, query string, args []any, scan func(rows Rows) error) error
}
