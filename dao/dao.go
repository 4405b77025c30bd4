package dao

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hatlonely/daox/cfg"
	"github.com/hatlonely/daox/executor"
	"github.com/hatlonely/daox/log"
	"github.com/hatlonely/daox/schema"
)

var (
	ErrNilRecord         = errors.New("record cannot be nil")
	ErrNilRecords        = errors.New("records cannot be nil")
	ErrNilID             = errors.New("id cannot be nil")
	ErrNilIDs            = errors.New("ids cannot be nil")
	ErrEmptyProperty     = errors.New("property name cannot be empty")
	ErrNoPrimaryKey      = errors.New("no primary key configured")
	ErrUnsupportedIDType = errors.New("unsupported id type")
)

// Options Dao 初始化选项
type Options struct {
	// 批量操作的分批大小
	BatchSize int `cfg:"batchSize" def:"40" validate:"gte=0"`
}

// Dao 单表单类型的 CRUD 模板。
// 构造时一次性完成元数据和 SQL 的准备，之后所有操作复用缓存的 SQL，
// 只做取值绑定和结果映射。初始化完成后可以被多个 goroutine 并发使用。
//
//	meta := schema.MustDerive[User]("",
//	    schema.Int64("id", func(u *User) *int64 { return &u.ID }).PrimaryKey(),
//	    schema.String("name", func(u *User) *string { return &u.Name }),
//	)
//	userDao, err := dao.NewDao[User](exec, meta)
type Dao[T any] struct {
	exec executor.Executor
	meta *schema.Metadata[T]

	batchSize int
	logger    log.Logger
}

// NewDao 使用默认选项创建 Dao
func NewDao[T any](exec executor.Executor, meta *schema.Metadata[T]) (*Dao[T], error) {
	return NewDaoWithOptions(exec, meta, &Options{})
}

// NewDaoWithOptions 根据选项创建 Dao
func NewDaoWithOptions[T any](exec executor.Executor, meta *schema.Metadata[T], options *Options) (*Dao[T], error) {
	if exec == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if meta == nil {
		return nil, errors.New("metadata cannot be nil")
	}
	if options == nil {
		options = &Options{}
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}
	if err := cfg.ValidateStruct(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}

	batchSize := options.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	d := &Dao[T]{
		exec:      exec,
		meta:      meta,
		batchSize: batchSize,
		logger:    log.Default(),
	}
	d.logger.Debug("dao ready",
		"table", meta.Table(), "insertSQL", meta.InsertSQL(), "updateSQL", meta.UpdateSQL())
	return d, nil
}

// SetLogger 替换日志对象
func (d *Dao[T]) SetLogger(logger log.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Metadata 返回实体元数据
func (d *Dao[T]) Metadata() *schema.Metadata[T] {
	return d.meta
}

// insertArgs 按字段顺序绑定全部字段
func (d *Dao[T]) insertArgs(record *T) []any {
	fields := d.meta.Fields()
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f.Value(record)
	}
	return args
}

// updateArgs 先按顺序绑定非主键字段，最后绑定主键，与 UPDATE 语句的占位符顺序一致
func (d *Dao[T]) updateArgs(record *T) []any {
	fields := d.meta.Fields()
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if f.IsPrimaryKey() {
			continue
		}
		args = append(args, f.Value(record))
	}
	return append(args, d.meta.PrimaryKey().Value(record))
}

// Add 保存一条记录
func (d *Dao[T]) Add(ctx context.Context, record *T) error {
	if record == nil {
		return errors.WithStack(ErrNilRecord)
	}
	_, err := d.exec.Execute(ctx, d.meta.InsertSQL(), d.insertArgs(record))
	return err
}

// AddBatch 批量保存记录，内部分批执行。
// 某一批失败时立即返回错误，之前批次的效果不会回滚，
// 需要整体原子性时调用方要用事务包住本方法。
func (d *Dao[T]) AddBatch(ctx context.Context, records []*T) error {
	if records == nil {
		return errors.WithStack(ErrNilRecords)
	}
	for i, chunk := range Chunk(records, d.batchSize) {
		argsList := make([][]any, len(chunk))
		for j, record := range chunk {
			if record == nil {
				return errors.Wrapf(ErrNilRecord, "records[%d]", i*d.batchSize+j)
			}
			argsList[j] = d.insertArgs(record)
		}
		if _, err := d.exec.ExecuteBatch(ctx, d.meta.InsertSQL(), argsList); err != nil {
			return errors.WithMessagef(err, "batch %d failed", i)
		}
	}
	return nil
}

// Update 按主键更新一条记录，返回是否恰好影响一行
func (d *Dao[T]) Update(ctx context.Context, record *T) (bool, error) {
	if record == nil {
		return false, errors.WithStack(ErrNilRecord)
	}
	if d.meta.PrimaryKey() == nil {
		return false, errors.WithStack(ErrNoPrimaryKey)
	}
	count, err := d.exec.Execute(ctx, d.meta.UpdateSQL(), d.updateArgs(record))
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// UpdateBatch 批量更新记录，返回各批影响行数之和。
// 与 AddBatch 一样，分批之间没有事务协调
func (d *Dao[T]) UpdateBatch(ctx context.Context, records []*T) (int64, error) {
	if records == nil {
		return 0, errors.WithStack(ErrNilRecords)
	}
	if d.meta.PrimaryKey() == nil {
		return 0, errors.WithStack(ErrNoPrimaryKey)
	}

	var total int64
	for i, chunk := range Chunk(records, d.batchSize) {
		argsList := make([][]any, len(chunk))
		for j, record := range chunk {
			if record == nil {
				return total, errors.Wrapf(ErrNilRecord, "records[%d]", i*d.batchSize+j)
			}
			argsList[j] = d.updateArgs(record)
		}
		counts, err := d.exec.ExecuteBatch(ctx, d.meta.UpdateSQL(), argsList)
		for _, count := range counts {
			total += count
		}
		if err != nil {
			return total, errors.WithMessagef(err, "batch %d failed", i)
		}
	}
	return total, nil
}

// QueryByID 按主键查询，查不到返回 nil。
// 主键条件实际不唯一时只返回第一行，调用方不应该依赖这个行为
func (d *Dao[T]) QueryByID(ctx context.Context, id any) (*T, error) {
	if id == nil {
		return nil, errors.WithStack(ErrNilID)
	}
	if d.meta.PrimaryKey() == nil {
		return nil, errors.WithStack(ErrNoPrimaryKey)
	}
	records, err := d.QueryByProperty(ctx, d.meta.PrimaryKey().ColumnName(), id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// QueryAll 查询全部记录
func (d *Dao[T]) QueryAll(ctx context.Context) ([]*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", d.meta.Columns(), d.meta.Table())
	return d.queryFull(ctx, query, nil)
}

// QueryByProperty 按列名和值查询，列名由调用方保证合法
func (d *Dao[T]) QueryByProperty(ctx context.Context, property string, value any) ([]*T, error) {
	if property == "" {
		return nil, errors.WithStack(ErrEmptyProperty)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", d.meta.Columns(), d.meta.Table(), property)
	return d.queryFull(ctx, query, []any{value})
}

// QueryByCondition 按条件子句查询，如 "NAME=? AND AGE>?"。
// 条件子句和参数原样传给执行器，占位符对齐和内嵌字面量的安全性由调用方负责
func (d *Dao[T]) QueryByCondition(ctx context.Context, condition string, params []any) ([]*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", d.meta.Columns(), d.meta.Table(), condition)
	return d.queryFull(ctx, query, params)
}

// QueryBySQL 执行任意查询语句，按列名映射结果。
// 比按位置映射慢，但不要求列顺序与字段顺序一致；
// 匹配不到字段的列会存入记录的附加属性（记录实现 PropHolder 时）
func (d *Dao[T]) QueryBySQL(ctx context.Context, query string, params []any) ([]*T, error) {
	var records []*T
	err := d.exec.Query(ctx, query, params, func(rows executor.Rows) error {
		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			record, err := d.mapRowByColumn(rows, columns)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByID 按主键删除一条记录，返回是否恰好删除一行
func (d *Dao[T]) DeleteByID(ctx context.Context, id any) (bool, error) {
	if id == nil {
		return false, errors.WithStack(ErrNilID)
	}
	if d.meta.PrimaryKey() == nil {
		return false, errors.WithStack(ErrNoPrimaryKey)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s=?", d.meta.Table(), d.meta.PrimaryKey().ColumnName())
	count, err := d.exec.Execute(ctx, query, []any{id})
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// DeleteByIDs 批量按主键删除，内部分批执行，返回删除的总行数。
// id 只支持 string 和 int64 两种表示
func (d *Dao[T]) DeleteByIDs(ctx context.Context, ids []any) (int64, error) {
	if ids == nil {
		return 0, errors.WithStack(ErrNilIDs)
	}
	if d.meta.PrimaryKey() == nil {
		return 0, errors.WithStack(ErrNoPrimaryKey)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s=?", d.meta.Table(), d.meta.PrimaryKey().ColumnName())

	var total int64
	for i, chunk := range Chunk(ids, d.batchSize) {
		argsList := make([][]any, len(chunk))
		for j, id := range chunk {
			if id == nil {
				return total, errors.Wrapf(ErrNilID, "ids[%d]", i*d.batchSize+j)
			}
			switch id.(type) {
			case string, int64:
				argsList[j] = []any{id}
			default:
				return total, errors.Wrapf(ErrUnsupportedIDType, "ids[%d]: %T", i*d.batchSize+j, id)
			}
		}
		counts, err := d.exec.ExecuteBatch(ctx, query, argsList)
		for _, count := range counts {
			total += count
		}
		if err != nil {
			return total, errors.WithMessagef(err, "batch %d failed", i)
		}
	}
	return total, nil
}

// DeleteByProperty 按列名和值删除，返回删除的行数
func (d *Dao[T]) DeleteByProperty(ctx context.Context, property string, value any) (int64, error) {
	if property == "" {
		return 0, errors.WithStack(ErrEmptyProperty)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s=?", d.meta.Table(), property)
	return d.exec.Execute(ctx, query, []any{value})
}

// DeleteByCondition 按条件子句删除，返回删除的行数
func (d *Dao[T]) DeleteByCondition(ctx context.Context, condition string, params []any) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", d.meta.Table(), condition)
	return d.exec.Execute(ctx, query, params)
}
