package metadata

import (
	"database/sql"
	"fmt"

	"github.com/scorbettUM/dcrx-kv/internal/common"
)

// dialect isolates the handful of SQL differences between the three
// supported database/sql backends behind one small surface, so Store's
// query-building code stays backend-agnostic.
type dialect struct {
	name          string
	driverName    string
	placeholder   func(pos int) string
	idColumnDDL   string
	createTableDDL string
}

func dialectFor(databaseType string) (dialect, error) {
	switch databaseType {
	case "", "sqlite":
		return dialect{
			name:        "sqlite",
			driverName:  "sqlite",
			placeholder: func(int) string { return "?" },
			idColumnDDL: "id TEXT PRIMARY KEY",
			createTableDDL: `CREATE TABLE IF NOT EXISTS blobs (
				id TEXT PRIMARY KEY,
				key TEXT NOT NULL,
				namespace TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				filename TEXT,
				content_type TEXT,
				operation_type TEXT,
				backup_type TEXT,
				encoding TEXT,
				context TEXT,
				status TEXT NOT NULL,
				error TEXT
			)`,
		}, nil
	case "postgres":
		return dialect{
			name:        "postgres",
			driverName:  "pgx",
			placeholder: func(pos int) string { return fmt.Sprintf("$%d", pos) },
			idColumnDDL: "id TEXT PRIMARY KEY",
			createTableDDL: `CREATE TABLE IF NOT EXISTS blobs (
				id TEXT PRIMARY KEY,
				key TEXT NOT NULL,
				namespace TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				filename TEXT,
				content_type TEXT,
				operation_type TEXT,
				backup_type TEXT,
				encoding TEXT,
				context TEXT,
				status TEXT NOT NULL,
				error TEXT
			)`,
		}, nil
	case "mysql":
		return dialect{
			name:        "mysql",
			driverName:  "mysql",
			placeholder: func(int) string { return "?" },
			idColumnDDL: "id VARCHAR(64) PRIMARY KEY",
			createTableDDL: `CREATE TABLE IF NOT EXISTS blobs (
				id VARCHAR(64) PRIMARY KEY,
				` + "`key`" + ` VARCHAR(512) NOT NULL,
				namespace VARCHAR(512) NOT NULL,
				path VARCHAR(1024) NOT NULL UNIQUE,
				filename VARCHAR(512),
				content_type VARCHAR(255),
				operation_type VARCHAR(32),
				backup_type VARCHAR(32),
				encoding VARCHAR(64),
				context TEXT,
				status VARCHAR(32) NOT NULL,
				error TEXT
			)`,
		}, nil
	default:
		return dialect{}, fmt.Errorf("metadata: unsupported database_type %q", databaseType)
	}
}

// keyColumn returns the dialect-correct identifier for the reserved "key"
// column (MySQL requires backticks; sqlite/postgres accept it bare).
func (d dialect) keyColumn() string {
	if d.name == "mysql" {
		return "`key`"
	}
	return "key"
}

func dataSourceName(d dialect, cfg *common.DatabaseConfig) (string, error) {
	switch d.name {
	case "sqlite":
		if cfg.URI != "" {
			return cfg.URI, nil
		}
		name := cfg.Name
		if name == "" {
			name = "dcrx_kv.db"
		}
		return name, nil
	case "postgres", "mysql":
		if cfg.URI == "" {
			return "", fmt.Errorf("metadata: database_type %q requires a connection uri", d.name)
		}
		return cfg.URI, nil
	default:
		return "", fmt.Errorf("metadata: unsupported database_type %q", d.name)
	}
}

// Placeholder renders the dialect-correct bind-parameter marker for a
// 1-indexed argument position ("?" for sqlite/mysql, "$1"-style for
// postgres). Exported so collaborators outside this package (userstore)
// that share the same connection/dialect selection need not duplicate it.
type Placeholder func(pos int) string

// OpenDatabase opens the database/sql handle named by cfg and returns it
// alongside the dialect's placeholder renderer and name, so a second
// database/sql-backed store (userstore) can reuse the exact same driver
// selection and DSN-building rules as MetadataStore without redefining
// them.
func OpenDatabase(cfg *common.DatabaseConfig, poolSize int) (*sql.DB, Placeholder, string, error) {
	d, err := dialectFor(cfg.Type)
	if err != nil {
		return nil, nil, "", err
	}
	dsn, err := dataSourceName(d, cfg)
	if err != nil {
		return nil, nil, "", err
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, nil, "", fmt.Errorf("metadata: open %s: %w", d.name, err)
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
	}
	return db, Placeholder(d.placeholder), d.name, nil
}
