package dao_test

import (
	"context"
	"fmt"

	"github.com/hatlonely/daox/dao"
	"github.com/hatlonely/daox/executor"
	"github.com/hatlonely/daox/schema"
)

type User struct {
	ID   int64
	Name string
	Age  *int32
}

func ExampleNewDao() {
	// 声明字段映射，主键自动排在最前面
	meta, err := schema.Derive[User]("t_user",
		schema.Int64("id", func(u *User) *int64 { return &u.ID }).PrimaryKey(),
		schema.String("name", func(u *User) *string { return &u.Name }),
		schema.NullInt32("age", func(u *User) **int32 { return &u.Age }),
	)
	if err != nil {
		fmt.Printf("派生元数据失败: %v\n", err)
		return
	}

	exec, err := executor.NewSQLWithOptions(&executor.SQLOptions{
		Driver:   "sqlite3",
		Database: ":memory:",
		MaxConns: 1,
		MaxIdle:  1,
	})
	if err != nil {
		fmt.Printf("创建执行器失败: %v\n", err)
		return
	}
	defer exec.Close()

	ctx := context.Background()
	if _, err := exec.Execute(ctx, "CREATE TABLE T_USER(ID INTEGER PRIMARY KEY, NAME TEXT, AGE INTEGER)", nil); err != nil {
		fmt.Printf("建表失败: %v\n", err)
		return
	}

	userDao, err := dao.NewDao(exec, meta)
	if err != nil {
		fmt.Printf("创建 Dao 失败: %v\n", err)
		return
	}

	// 插入再按主键查询
	if err := userDao.Add(ctx, &User{ID: 1, Name: "foo"}); err != nil {
		fmt.Printf("插入失败: %v\n", err)
		return
	}

	u, err := userDao.QueryByID(ctx, int64(1))
	if err != nil {
		fmt.Printf("查询失败: %v\n", err)
		return
	}
	fmt.Println(u.Name)

	// Output:
	// foo
}
