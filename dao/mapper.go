package dao

import (
	"context"
	"strings"

	"github.com/hatlonely/daox/executor"
	"github.com/hatlonely/daox/schema"
)

// queryFull 执行查询并按位置映射每一行。
// 这条路径假定结果集的列顺序与字段顺序完全一致（查询语句用的是缓存的列名表），
// 省掉列名查找
func (d *Dao[T]) queryFull(ctx context.Context, query string, params []any) ([]*T, error) {
	var records []*T
	err := d.exec.Query(ctx, query, params, func(rows executor.Rows) error {
		for rows.Next() {
			record, err := d.mapRowFull(rows)
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

// mapRowFull 按字段顺序位置映射一行，要求列顺序与字段顺序完全一致
func (d *Dao[T]) mapRowFull(rows executor.Rows) (*T, error) {
	fields := d.meta.Fields()
	holders := make([]any, len(fields))
	for i, f := range fields {
		holders[i] = f.ScanDest()
	}
	if err := rows.Scan(holders...); err != nil {
		return nil, err
	}

	record := new(T)
	for i, f := range fields {
		if err := f.Assign(record, holders[i]); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// mapRowByColumn 按列名映射一行，匹配不到字段的列写入附加属性
func (d *Dao[T]) mapRowByColumn(rows executor.Rows, columns []string) (*T, error) {
	fields := make([]*schema.Field[T], len(columns))
	holders := make([]any, len(columns))
	for i, column := range columns {
		if f, ok := d.meta.FieldByColumn(column); ok {
			fields[i] = f
			holders[i] = f.ScanDest()
		} else {
			holders[i] = new(any)
		}
	}
	if err := rows.Scan(holders...); err != nil {
		return nil, err
	}

	record := new(T)
	holder, _ := any(record).(PropHolder)
	for i, column := range columns {
		if fields[i] != nil {
			if err := fields[i].Assign(record, holders[i]); err != nil {
				return nil, err
			}
			continue
		}
		if holder != nil {
			holder.SetProp(strings.ToUpper(column), *holders[i].(*any))
		}
	}
	return record, nil
}
