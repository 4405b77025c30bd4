package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type validateOptions struct {
	Driver    string `validate:"oneof=mysql sqlite3"`
	BatchSize int    `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("合法结构体通过校验", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(&validateOptions{Driver: "mysql", BatchSize: 40}))
	})

	t.Run("非法字段值报错", func(t *testing.T) {
		assert.Error(t, ValidateStruct(&validateOptions{Driver: "oracle"}))
		assert.Error(t, ValidateStruct(&validateOptions{Driver: "mysql", BatchSize: -1}))
	})

	t.Run("nil 和非结构体直接通过", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(nil))
		assert.NoError(t, ValidateStruct((*validateOptions)(nil)))
		assert.NoError(t, ValidateStruct("not a struct"))
		assert.NoError(t, ValidateStruct(42))
	})
}
