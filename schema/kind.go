package schema

// Kind 字段值类型，封闭集合
// 引擎只支持这里列出的关系型数据类别，派生元数据时使用未知类型会报错
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt64
	KindInt32
	KindDecimal
	KindTime
	KindBool
	KindFloat64
	KindFloat32
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindInt32:
		return "int32"
	case KindDecimal:
		return "decimal"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}
