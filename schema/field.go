package schema

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrEnumOutOfRange = errors.New("enum ordinal out of range")

// Field 描述一个映射字段：逻辑属性名、数据库列名、值类型、是否主键。
// 字段通过取址闭包访问记录上的属性，取代运行时反射。
// 可空字段使用指针属性（**V 取址闭包），数据库 NULL 和 nil 互相对应；
// 非空字段读到 NULL 时跳过回填，属性保持零值。
type Field[T any] struct {
	name     string
	column   string
	kind     Kind
	pk       bool
	nullable bool

	// 写路径：从记录中取值并转换为驱动参数，空值转换为带类型的 NULL
	value func(rec *T) any
	// 读路径：生成扫描目标，再把扫描结果回填到记录
	dest   func() any
	assign func(rec *T, holder any) error

	err error
}

// Column 覆盖默认的数据库列名（默认为属性名的大写形式）
func (f *Field[T]) Column(name string) *Field[T] {
	f.column = strings.ToUpper(name)
	return f
}

// PrimaryKey 将字段标记为主键
func (f *Field[T]) PrimaryKey() *Field[T] {
	f.pk = true
	return f
}

func (f *Field[T]) Name() string {
	return f.name
}

func (f *Field[T]) ColumnName() string {
	return f.column
}

func (f *Field[T]) Kind() Kind {
	return f.kind
}

func (f *Field[T]) IsPrimaryKey() bool {
	return f.pk
}

func (f *Field[T]) IsNullable() bool {
	return f.nullable
}

// Value 写路径：取出记录上的属性值，转换为驱动参数
func (f *Field[T]) Value(rec *T) any {
	return f.value(rec)
}

// ScanDest 读路径：返回该字段类型对应的扫描目标
func (f *Field[T]) ScanDest() any {
	return f.dest()
}

// Assign 读路径：把扫描结果回填到记录上的属性
func (f *Field[T]) Assign(rec *T, holder any) error {
	return f.assign(rec, holder)
}

func newField[T any](name string, kind Kind, nullable bool) *Field[T] {
	f := &Field[T]{
		name:     name,
		column:   strings.ToUpper(name),
		kind:     kind,
		nullable: nullable,
	}
	if name == "" {
		f.err = errors.New("field name cannot be empty")
	}
	return f
}

func nilAccessorField[T any](name string, kind Kind, nullable bool) *Field[T] {
	f := newField[T](name, kind, nullable)
	if f.err == nil {
		f.err = errors.Wrapf(ErrNilAccessor, "field %s", name)
	}
	return f
}

// String 字符串字段
func String[T any](name string, addr func(*T) *string) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindString, false)
	}
	f := newField[T](name, KindString, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullString{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullString)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.String
		return nil
	}
	return f
}

// NullString 可空字符串字段
func NullString[T any](name string, addr func(*T) **string) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindString, true)
	}
	f := newField[T](name, KindString, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullString{String: *p, Valid: true}
		}
		return sql.NullString{}
	}
	f.dest = func() any { return &sql.NullString{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullString)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		s := v.String
		*addr(rec) = &s
		return nil
	}
	return f
}

// Int64 64 位整数字段
func Int64[T any](name string, addr func(*T) *int64) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindInt64, false)
	}
	f := newField[T](name, KindInt64, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullInt64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullInt64)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Int64
		return nil
	}
	return f
}

// NullInt64 可空 64 位整数字段
func NullInt64[T any](name string, addr func(*T) **int64) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindInt64, true)
	}
	f := newField[T](name, KindInt64, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullInt64{Int64: *p, Valid: true}
		}
		return sql.NullInt64{}
	}
	f.dest = func() any { return &sql.NullInt64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullInt64)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		n := v.Int64
		*addr(rec) = &n
		return nil
	}
	return f
}

// Int32 32 位整数字段
func Int32[T any](name string, addr func(*T) *int32) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindInt32, false)
	}
	f := newField[T](name, KindInt32, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullInt32{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullInt32)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Int32
		return nil
	}
	return f
}

// NullInt32 可空 32 位整数字段
func NullInt32[T any](name string, addr func(*T) **int32) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindInt32, true)
	}
	f := newField[T](name, KindInt32, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullInt32{Int32: *p, Valid: true}
		}
		return sql.NullInt32{}
	}
	f.dest = func() any { return &sql.NullInt32{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullInt32)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		n := v.Int32
		*addr(rec) = &n
		return nil
	}
	return f
}

// Decimal 十进制数字段，使用 decimal.Decimal 避免浮点精度损失
func Decimal[T any](name string, addr func(*T) *decimal.Decimal) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindDecimal, false)
	}
	f := newField[T](name, KindDecimal, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &decimal.NullDecimal{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*decimal.NullDecimal)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Decimal
		return nil
	}
	return f
}

// NullDecimal 可空十进制数字段
func NullDecimal[T any](name string, addr func(*T) **decimal.Decimal) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindDecimal, true)
	}
	f := newField[T](name, KindDecimal, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return decimal.NullDecimal{Decimal: *p, Valid: true}
		}
		return decimal.NullDecimal{}
	}
	f.dest = func() any { return &decimal.NullDecimal{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*decimal.NullDecimal)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		d := v.Decimal
		*addr(rec) = &d
		return nil
	}
	return f
}

// Time 时间字段，按时间戳语义读写
func Time[T any](name string, addr func(*T) *time.Time) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindTime, false)
	}
	f := newField[T](name, KindTime, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullTime{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullTime)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Time
		return nil
	}
	return f
}

// NullTime 可空时间字段
func NullTime[T any](name string, addr func(*T) **time.Time) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindTime, true)
	}
	f := newField[T](name, KindTime, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullTime{Time: *p, Valid: true}
		}
		return sql.NullTime{}
	}
	f.dest = func() any { return &sql.NullTime{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullTime)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		t := v.Time
		*addr(rec) = &t
		return nil
	}
	return f
}

// Bool 布尔字段
func Bool[T any](name string, addr func(*T) *bool) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindBool, false)
	}
	f := newField[T](name, KindBool, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullBool{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullBool)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Bool
		return nil
	}
	return f
}

// NullBool 可空布尔字段
func NullBool[T any](name string, addr func(*T) **bool) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindBool, true)
	}
	f := newField[T](name, KindBool, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullBool{Bool: *p, Valid: true}
		}
		return sql.NullBool{}
	}
	f.dest = func() any { return &sql.NullBool{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullBool)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		b := v.Bool
		*addr(rec) = &b
		return nil
	}
	return f
}

// Float64 双精度浮点字段
func Float64[T any](name string, addr func(*T) *float64) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindFloat64, false)
	}
	f := newField[T](name, KindFloat64, false)
	f.value = func(rec *T) any { return *addr(rec) }
	f.dest = func() any { return &sql.NullFloat64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullFloat64)
		if !v.Valid {
			return nil
		}
		*addr(rec) = v.Float64
		return nil
	}
	return f
}

// NullFloat64 可空双精度浮点字段
func NullFloat64[T any](name string, addr func(*T) **float64) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindFloat64, true)
	}
	f := newField[T](name, KindFloat64, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullFloat64{Float64: *p, Valid: true}
		}
		return sql.NullFloat64{}
	}
	f.dest = func() any { return &sql.NullFloat64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullFloat64)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		n := v.Float64
		*addr(rec) = &n
		return nil
	}
	return f
}

// Float32 单精度浮点字段
func Float32[T any](name string, addr func(*T) *float32) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindFloat32, false)
	}
	f := newField[T](name, KindFloat32, false)
	f.value = func(rec *T) any { return float64(*addr(rec)) }
	f.dest = func() any { return &sql.NullFloat64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullFloat64)
		if !v.Valid {
			return nil
		}
		*addr(rec) = float32(v.Float64)
		return nil
	}
	return f
}

// NullFloat32 可空单精度浮点字段
func NullFloat32[T any](name string, addr func(*T) **float32) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindFloat32, true)
	}
	f := newField[T](name, KindFloat32, true)
	f.value = func(rec *T) any {
		if p := *addr(rec); p != nil {
			return sql.NullFloat64{Float64: float64(*p), Valid: true}
		}
		return sql.NullFloat64{}
	}
	f.dest = func() any { return &sql.NullFloat64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullFloat64)
		if !v.Valid {
			*addr(rec) = nil
			return nil
		}
		n := float32(v.Float64)
		*addr(rec) = &n
		return nil
	}
	return f
}

type enumInt interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Enum 枚举字段，按序数存储：写入时存枚举值的序数（从 0 开始），
// 读取时按序数选取枚举值，超出 variants 范围报 ErrEnumOutOfRange
func Enum[T any, E enumInt](name string, addr func(*T) *E, variants int) *Field[T] {
	if addr == nil {
		return nilAccessorField[T](name, KindEnum, false)
	}
	f := newField[T](name, KindEnum, false)
	f.value = func(rec *T) any { return int64(*addr(rec)) }
	f.dest = func() any { return &sql.NullInt64{} }
	f.assign = func(rec *T, holder any) error {
		v := holder.(*sql.NullInt64)
		if !v.Valid {
			return nil
		}
		if v.Int64 < 0 || v.Int64 >= int64(variants) {
			return errors.Wrapf(ErrEnumOutOfRange, "field %s: ordinal %d, %d variants", name, v.Int64, variants)
		}
		*addr(rec) = E(v.Int64)
		return nil
	}
	return f
}
