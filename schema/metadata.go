package schema

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotStruct          = errors.New("record shape is not a struct")
	ErrNoFields           = errors.New("no mapped fields")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrMultiplePrimaryKey = errors.New("multiple primary keys")
	ErrNilAccessor        = errors.New("field accessor cannot be nil")
	ErrUnsupportedKind    = errors.New("unsupported field kind")
)

// Metadata 一个映射类型的实体元数据，Derive 时构建一次，之后只读。
// 字段顺序固定且主键在最前，生成 SQL 和按位置映射结果集都依赖这个顺序。
// 初始化完成后可以在多个 goroutine 之间共享，不需要加锁。
type Metadata[T any] struct {
	table  string
	fields []*Field[T]
	pk     *Field[T]

	nameToField   map[string]*Field[T]
	columnToField map[string]*Field[T]

	insertSQL string
	updateSQL string
	columns   string
}

// Derive 从字段声明派生实体元数据。
// table 为空时默认使用类型名的大写形式。
// 字段名或列名冲突、声明多个主键、字段类型不合法时报错。
func Derive[T any](table string, fields ...*Field[T]) (*Metadata[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrNotStruct, "type %s", t.String())
	}
	if table == "" {
		if t.Name() == "" {
			return nil, errors.Wrap(ErrNotStruct, "anonymous type requires an explicit table name")
		}
		table = strings.ToUpper(t.Name())
	} else {
		table = strings.ToUpper(table)
	}

	if len(fields) == 0 {
		return nil, errors.Wrapf(ErrNoFields, "table %s", table)
	}

	m := &Metadata[T]{
		table:         table,
		nameToField:   make(map[string]*Field[T], len(fields)),
		columnToField: make(map[string]*Field[T], len(fields)),
	}

	for _, f := range fields {
		if f == nil {
			return nil, errors.Wrapf(ErrNilAccessor, "table %s: nil field", table)
		}
		if f.err != nil {
			return nil, f.err
		}
		if f.kind <= KindInvalid || f.kind > KindEnum {
			return nil, errors.Wrapf(ErrUnsupportedKind, "field %s", f.name)
		}
		if _, ok := m.nameToField[f.name]; ok {
			return nil, errors.Wrapf(ErrDuplicateField, "field %s", f.name)
		}
		if _, ok := m.columnToField[f.column]; ok {
			return nil, errors.Wrapf(ErrDuplicateColumn, "column %s", f.column)
		}
		m.nameToField[f.name] = f
		m.columnToField[f.column] = f

		// 主键固定排在字段列表的最前面
		if f.pk {
			if m.pk != nil {
				return nil, errors.Wrapf(ErrMultiplePrimaryKey, "fields %s and %s", m.pk.name, f.name)
			}
			m.pk = f
			m.fields = append([]*Field[T]{f}, m.fields...)
		} else {
			m.fields = append(m.fields, f)
		}
	}

	m.initSQL()
	return m, nil
}

// MustDerive 与 Derive 相同，出错时 panic，用于包级变量初始化
func MustDerive[T any](table string, fields ...*Field[T]) *Metadata[T] {
	m, err := Derive(table, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// initSQL 预生成固定的 SQL 语句，之后所有操作复用
func (m *Metadata[T]) initSQL() {
	columns := make([]string, len(m.fields))
	placeholders := make([]string, len(m.fields))
	for i, f := range m.fields {
		columns[i] = f.column
		placeholders[i] = "?"
	}
	m.columns = strings.Join(columns, ",")

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(m.table)
	sb.WriteString("(")
	sb.WriteString(m.columns)
	sb.WriteString(") VALUES(")
	sb.WriteString(strings.Join(placeholders, ","))
	sb.WriteString(")")
	m.insertSQL = sb.String()

	// 没有主键时不生成 UPDATE 语句，更新操作在调用时报错
	if m.pk == nil {
		return
	}
	sets := make([]string, 0, len(m.fields)-1)
	for _, f := range m.fields {
		if f.pk {
			continue
		}
		sets = append(sets, f.column+"=?")
	}
	sb.Reset()
	sb.WriteString("UPDATE ")
	sb.WriteString(m.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ","))
	sb.WriteString(" WHERE ")
	sb.WriteString(m.pk.column)
	sb.WriteString("=?")
	m.updateSQL = sb.String()
}

func (m *Metadata[T]) Table() string {
	return m.table
}

// Fields 返回字段列表，主键在最前，调用方不应该修改
func (m *Metadata[T]) Fields() []*Field[T] {
	return m.fields
}

// PrimaryKey 返回主键字段，没有主键时返回 nil
func (m *Metadata[T]) PrimaryKey() *Field[T] {
	return m.pk
}

func (m *Metadata[T]) FieldByName(name string) (*Field[T], bool) {
	f, ok := m.nameToField[name]
	return f, ok
}

func (m *Metadata[T]) FieldByColumn(column string) (*Field[T], bool) {
	f, ok := m.columnToField[strings.ToUpper(column)]
	return f, ok
}

// InsertSQL 全字段插入语句
func (m *Metadata[T]) InsertSQL() string {
	return m.insertSQL
}

// UpdateSQL 全字段更新语句，没有主键时为空字符串
func (m *Metadata[T]) UpdateSQL() string {
	return m.updateSQL
}

// Columns 逗号连接的全部列名，用于拼接 SELECT 语句
func (m *Metadata[T]) Columns() string {
	return m.columns
}
