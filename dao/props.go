package dao

// PropHolder 附加属性容器。
// QueryBySQL 做按列名映射时，无法匹配到字段的列会存入实现了这个接口的记录，
// 记录没有实现时直接丢弃
type PropHolder interface {
	SetProp(name string, value any)
}

// Props 附加属性集合，嵌入记录结构体即可在多表查询时接住其他表的列
//
//	type User struct {
//	    dao.Props
//	    ID   int64
//	    Name string
//	}
type Props struct {
	props map[string]any
}

func (p *Props) SetProp(name string, value any) {
	if p.props == nil {
		p.props = make(map[string]any)
	}
	p.props[name] = value
}

func (p *Props) GetProp(name string) (any, bool) {
	v, ok := p.props[name]
	return v, ok
}

func (p *Props) Props() map[string]any {
	return p.props
}
