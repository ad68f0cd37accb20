package db

import (
	"fmt"

	"gorm.io/gorm"
)

// demoSchema is a small web shop used to try the tools end to end.
var demoSchema = []string{
	`CREATE TABLE IF NOT EXISTS customer (
		id INTEGER PRIMARY KEY,
		firstname TEXT NOT NULL,
		lastname TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		dateofbirth DATE,
		gender TEXT CHECK (gender IN ('male', 'female', 'unisex')),
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS address (
		id INTEGER PRIMARY KEY,
		customerid INTEGER NOT NULL REFERENCES customer(id),
		firstname TEXT,
		lastname TEXT,
		address1 TEXT NOT NULL,
		address2 TEXT,
		city TEXT NOT NULL,
		zip TEXT NOT NULL,
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		ean TEXT,
		category TEXT,
		price NUMERIC(10, 2) NOT NULL,
		currentlyactive BOOLEAN NOT NULL DEFAULT 1,
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS "order" (
		id INTEGER PRIMARY KEY,
		customerid INTEGER NOT NULL REFERENCES customer(id),
		ordertimestamp TIMESTAMP NOT NULL,
		shippingaddressid INTEGER REFERENCES address(id),
		total NUMERIC(10, 2),
		shippingcost NUMERIC(6, 2),
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS order_item (
		id INTEGER PRIMARY KEY,
		orderid INTEGER NOT NULL REFERENCES "order"(id),
		productid INTEGER NOT NULL REFERENCES product(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(10, 2) NOT NULL,
		created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_address_customer ON address(customerid)`,
	`CREATE INDEX IF NOT EXISTS idx_order_customer ON "order"(customerid)`,
}

// DemoTables lists the tables created by CreateDemoSchema.
var DemoTables = []string{"customer", "address", "product", "order", "order_item"}

// CreateDemoSchema creates the demo web shop tables in db. It is safe to run
// more than once.
func CreateDemoSchema(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range demoSchema {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create demo schema: %w", err)
			}
		}
		return nil
	})
}
