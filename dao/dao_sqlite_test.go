package dao

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/daox/executor"
	"github.com/hatlonely/daox/schema"
)

type productStatus int

const (
	statusOnSale productStatus = iota
	statusOffShelf
	statusDeleted
)

// product 覆盖全部支持的值类型
type product struct {
	ID       int64
	Name     string
	Alias    *string
	Stock    int32
	Extra    *int64
	Weight   float32
	Rating   *float64
	Price    decimal.Decimal
	Rebate   *decimal.Decimal
	Sold     bool
	Hot      *bool
	Status   productStatus
	CreateAt time.Time
	ExpireAt *time.Time
}

func productMeta() *schema.Metadata[product] {
	return schema.MustDerive[product]("",
		schema.Int64("id", func(p *product) *int64 { return &p.ID }).PrimaryKey(),
		schema.String("name", func(p *product) *string { return &p.Name }),
		schema.NullString("alias", func(p *product) **string { return &p.Alias }),
		schema.Int32("stock", func(p *product) *int32 { return &p.Stock }),
		schema.NullInt64("extra", func(p *product) **int64 { return &p.Extra }),
		schema.Float32("weight", func(p *product) *float32 { return &p.Weight }),
		schema.NullFloat64("rating", func(p *product) **float64 { return &p.Rating }),
		schema.Decimal("price", func(p *product) *decimal.Decimal { return &p.Price }),
		schema.NullDecimal("rebate", func(p *product) **decimal.Decimal { return &p.Rebate }),
		schema.Bool("sold", func(p *product) *bool { return &p.Sold }),
		schema.NullBool("hot", func(p *product) **bool { return &p.Hot }),
		schema.Enum("status", func(p *product) *productStatus { return &p.Status }, 3),
		schema.Time("createAt", func(p *product) *time.Time { return &p.CreateAt }),
		schema.NullTime("expireAt", func(p *product) **time.Time { return &p.ExpireAt }),
	)
}

const createProductTable = `CREATE TABLE PRODUCT (
	ID INTEGER PRIMARY KEY,
	NAME TEXT,
	ALIAS TEXT,
	STOCK INTEGER,
	EXTRA INTEGER,
	WEIGHT REAL,
	RATING REAL,
	PRICE TEXT,
	REBATE TEXT,
	SOLD BOOLEAN,
	HOT BOOLEAN,
	STATUS INTEGER,
	CREATEAT TIMESTAMP,
	EXPIREAT TIMESTAMP
)`

func newSQLiteDao(t *testing.T) (*Dao[product], *executor.SQL) {
	// 内存库多连接会各自持有独立数据库，连接池限制为单连接
	exec, err := executor.NewSQLWithOptions(&executor.SQLOptions{
		Driver:   "sqlite3",
		Database: ":memory:",
		MaxConns: 1,
		MaxIdle:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = exec.Close() })

	if _, err := exec.Execute(context.Background(), createProductTable, nil); err != nil {
		t.Fatal(err)
	}

	d, err := NewDao(exec, productMeta())
	if err != nil {
		t.Fatal(err)
	}
	return d, exec
}

func TestDaoSQLiteRoundTrip(t *testing.T) {
	Convey("测试 sqlite 全类型读写", t, func() {
		ctx := context.Background()
		d, _ := newSQLiteDao(t)

		Convey("全部字段有值时往返一致", func() {
			alias := "p1-alias"
			extra := int64(1024)
			rating := 4.5
			rebate := decimal.RequireFromString("0.88")
			hot := true
			expireAt := time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)

			want := &product{
				ID:       1,
				Name:     "p1",
				Alias:    &alias,
				Stock:    200,
				Extra:    &extra,
				Weight:   1.5,
				Rating:   &rating,
				Price:    decimal.RequireFromString("12.34"),
				Rebate:   &rebate,
				Sold:     true,
				Hot:      &hot,
				Status:   statusOffShelf,
				CreateAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				ExpireAt: &expireAt,
			}
			So(d.Add(ctx, want), ShouldBeNil)

			got, err := d.QueryByID(ctx, int64(1))
			So(err, ShouldBeNil)
			So(got, ShouldNotBeNil)
			So(got.Name, ShouldEqual, want.Name)
			So(*got.Alias, ShouldEqual, alias)
			So(got.Stock, ShouldEqual, want.Stock)
			So(*got.Extra, ShouldEqual, extra)
			So(got.Weight, ShouldEqual, want.Weight)
			So(*got.Rating, ShouldEqual, rating)
			So(got.Price.Equal(want.Price), ShouldBeTrue)
			So(got.Rebate.Equal(rebate), ShouldBeTrue)
			So(got.Sold, ShouldBeTrue)
			So(*got.Hot, ShouldBeTrue)
			So(got.Status, ShouldEqual, statusOffShelf)
			So(got.CreateAt.Equal(want.CreateAt), ShouldBeTrue)
			So(got.ExpireAt.Equal(expireAt), ShouldBeTrue)
		})

		Convey("可空字段写 NULL 读回仍为空", func() {
			want := &product{
				ID:       2,
				Name:     "p2",
				Price:    decimal.RequireFromString("1.00"),
				CreateAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			}
			So(d.Add(ctx, want), ShouldBeNil)

			got, err := d.QueryByID(ctx, int64(2))
			So(err, ShouldBeNil)
			So(got.Alias, ShouldBeNil)
			So(got.Extra, ShouldBeNil)
			So(got.Rating, ShouldBeNil)
			So(got.Rebate, ShouldBeNil)
			So(got.Hot, ShouldBeNil)
			So(got.ExpireAt, ShouldBeNil)
			So(got.Status, ShouldEqual, statusOnSale)
		})

		Convey("更新后再查询", func() {
			So(d.Add(ctx, &product{
				ID: 3, Name: "p3", Price: decimal.RequireFromString("5.00"),
				CreateAt: time.Now().UTC(),
			}), ShouldBeNil)

			got, err := d.QueryByID(ctx, int64(3))
			So(err, ShouldBeNil)
			got.Name = "p3-renamed"
			got.Status = statusDeleted

			ok, err := d.Update(ctx, got)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			got, err = d.QueryByID(ctx, int64(3))
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "p3-renamed")
			So(got.Status, ShouldEqual, statusDeleted)
		})
	})
}

func TestDaoSQLiteBatch(t *testing.T) {
	Convey("测试 sqlite 批量操作", t, func() {
		ctx := context.Background()

		newProduct := func(id int64) *product {
			return &product{
				ID: id, Name: "p", Price: decimal.RequireFromString("1.00"),
				CreateAt: time.Now().UTC(),
			}
		}

		Convey("批量插入和删除", func() {
			d, _ := newSQLiteDao(t)
			records := make([]*product, 0, 100)
			ids := make([]any, 0, 100)
			for i := int64(1); i <= 100; i++ {
				records = append(records, newProduct(i))
				ids = append(ids, i)
			}
			So(d.AddBatch(ctx, records), ShouldBeNil)

			all, err := d.QueryAll(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 100)

			count, err := d.DeleteByIDs(ctx, ids)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 100)
		})

		Convey("某一批失败时之前批次已生效", func() {
			d, _ := newSQLiteDao(t)
			d.batchSize = 2

			// 第二批的主键与第一批冲突
			err := d.AddBatch(ctx, []*product{
				newProduct(1), newProduct(2), newProduct(1),
			})
			So(err, ShouldNotBeNil)

			all, err := d.QueryAll(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
		})

		Convey("事务包住批量操作可以整体回滚", func() {
			d, exec := newSQLiteDao(t)

			err := exec.WithTx(ctx, func(tx *executor.Tx) error {
				txDao, err := NewDao(tx, d.Metadata())
				if err != nil {
					return err
				}
				if err := txDao.AddBatch(ctx, []*product{newProduct(1), newProduct(2)}); err != nil {
					return err
				}
				return errors.New("force rollback")
			})
			So(err, ShouldNotBeNil)

			all, err := d.QueryAll(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 0)
		})
	})
}

func TestDaoSQLiteConcurrentQuery(t *testing.T) {
	Convey("测试并发只读操作", t, func() {
		ctx := context.Background()
		d, _ := newSQLiteDao(t)

		So(d.Add(ctx, &product{
			ID: 1, Name: "p1", Price: decimal.RequireFromString("1.00"),
			CreateAt: time.Now().UTC(),
		}), ShouldBeNil)

		insertSQL := d.Metadata().InsertSQL()
		updateSQL := d.Metadata().UpdateSQL()

		var wg sync.WaitGroup
		errCh := make(chan error, 16)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if _, err := d.QueryByID(ctx, int64(1)); err != nil {
						errCh <- err
						return
					}
					if _, err := d.QueryAll(ctx); err != nil {
						errCh <- err
						return
					}
				}
			}()
		}
		wg.Wait()
		close(errCh)

		So(len(errCh), ShouldEqual, 0)
		// 缓存的元数据和 SQL 不会被并发读操作改动
		So(d.Metadata().InsertSQL(), ShouldEqual, insertSQL)
		So(d.Metadata().UpdateSQL(), ShouldEqual, updateSQL)
	})
}
