package cfg

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct 使用 validator 校验结构体，基于 validate tag
// 非结构体对象直接通过校验，nil 指针同样通过
func ValidateStruct(object interface{}) error {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil
	}

	return validate.Struct(rv.Interface())
}
