package persistence

import "fmt"

var (
	_ Database = (*GormPostgreSQL)(nil)
	_ Database = (*SQLStore)(nil)
)

// Driver names accepted by Open.
const (
	DriverGorm     = "gorm"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects the configured backend.
func Open(driver string, pg PostgresOptions, sqlitePath string) (Database, error) {
	switch driver {
	case DriverGorm, "":
		return NewGormPostgreSQL(pg)
	case DriverPostgres:
		return NewPostgreSQL(pg)
	case DriverSQLite:
		return NewSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
