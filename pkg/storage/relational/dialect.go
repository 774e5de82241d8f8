package relational

import "fmt"

// Dialect captures the SQL differences between supported drivers
type Dialect struct {
	// Driver is the database/sql driver name
	Driver string

	createTable string
	insert      string
	list        string

	// returning is true when insert yields the new id as a row
	// instead of through sql.Result.LastInsertId.
	returning bool
}

var (
	// MySQL uses github.com/go-sql-driver/mysql
	MySQL = Dialect{
		Driver: "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS schools (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			address TEXT NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(255) NOT NULL,
			contact BIGINT NULL,
			image TEXT NULL,
			email_id VARCHAR(255) NULL
		)`,
		insert: `INSERT INTO schools (name, address, city, state, contact, image, email_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		list: `SELECT id, name, address, city, state, contact, image, email_id
			FROM schools ORDER BY id DESC`,
	}

	// Postgres uses github.com/lib/pq
	Postgres = Dialect{
		Driver: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS schools (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			address TEXT NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(255) NOT NULL,
			contact BIGINT NULL,
			image TEXT NULL,
			email_id VARCHAR(255) NULL
		)`,
		insert: `INSERT INTO schools (name, address, city, state, contact, image, email_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
		list: `SELECT id, name, address, city, state, contact, image, email_id
			FROM schools ORDER BY id DESC`,
		returning: true,
	}

	// SQLite uses github.com/mattn/go-sqlite3
	SQLite = Dialect{
		Driver: "sqlite3",
		createTable: `CREATE TABLE IF NOT EXISTS schools (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			state TEXT NOT NULL,
			contact INTEGER NULL,
			image TEXT NULL,
			email_id TEXT NULL
		)`,
		insert: `INSERT INTO schools (name, address, city, state, contact, image, email_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		list: `SELECT id, name, address, city, state, contact, image, email_id
			FROM schools ORDER BY id DESC`,
	}
)

// DialectFor returns the dialect registered for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql", "":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q (must be mysql, postgres or sqlite3)", driver)
	}
}
