package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCreateTable(t *testing.T) {
	length := int32(120)
	def := "nextval('customer_id_seq'::regclass)"

	t.Run("columns, keys and defaults", func(t *testing.T) {
		got := renderCreateTable(pgTable{
			Name: "address",
			Columns: []pgColumn{
				{Name: "id", DataType: "integer", Default: &def},
				{Name: "customerid", DataType: "integer"},
				{Name: "city", DataType: "character varying", MaxLength: &length, Nullable: true},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []pgForeignKey{
				{ConstraintName: "address_customerid_fkey", Columns: []string{"customerid"}, RefTable: "customer", RefColumns: []string{"id"}},
			},
		})

		want := `CREATE TABLE "address" (
    "id" integer NOT NULL DEFAULT nextval('customer_id_seq'::regclass),
    "customerid" integer NOT NULL,
    "city" character varying(120),
    PRIMARY KEY ("id"),
    CONSTRAINT "address_customerid_fkey" FOREIGN KEY ("customerid") REFERENCES "customer" ("id")
);`
		assert.Equal(t, want, got)
	})

	t.Run("reserved and odd identifiers are quoted", func(t *testing.T) {
		got := renderCreateTable(pgTable{
			Name:       "order",
			Columns:    []pgColumn{{Name: `we"ird`, DataType: "text", Nullable: true}},
			PrimaryKey: []string{"a", "b"},
		})
		assert.Contains(t, got, `CREATE TABLE "order" (`)
		assert.Contains(t, got, `"we""ird" text`)
		assert.Contains(t, got, `PRIMARY KEY ("a", "b")`)
	})

	t.Run("composite foreign key is one constraint", func(t *testing.T) {
		var fks []pgForeignKey
		fks = appendForeignKeyColumn(fks, "line_order_fkey", "orderid", "order_item", "orderid")
		fks = appendForeignKeyColumn(fks, "line_order_fkey", "lineno", "order_item", "lineno")
		fks = appendForeignKeyColumn(fks, "line_product_fkey", "productid", "product", "id")
		require.Len(t, fks, 2)

		got := renderCreateTable(pgTable{
			Name: "shipment_line",
			Columns: []pgColumn{
				{Name: "orderid", DataType: "integer"},
				{Name: "lineno", DataType: "integer"},
				{Name: "productid", DataType: "integer"},
			},
			ForeignKeys: fks,
		})

		assert.Equal(t, 1, strings.Count(got, `CONSTRAINT "line_order_fkey"`))
		assert.Contains(t, got, `CONSTRAINT "line_order_fkey" FOREIGN KEY ("orderid", "lineno") REFERENCES "order_item" ("orderid", "lineno")`)
		assert.Contains(t, got, `CONSTRAINT "line_product_fkey" FOREIGN KEY ("productid") REFERENCES "product" ("id")`)
	})
}
