package config

import "fmt"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ActivityStoreSQL   = "sql"
	ActivityStoreMongo = "mongo"
)

// UsesMongoActivityStore reports whether the audit trail is written to MongoDB
func (c *Config) UsesMongoActivityStore() bool {
	return c.ActivityStore == ActivityStoreMongo
}

// DatabaseTarget returns a printable description of the relational database in use
func (c *Config) DatabaseTarget() string {
	if c.DBDriver == DriverSQLite {
		return "sqlite:" + c.SQLitePath
	}
	return "postgres"
}

func (c *Config) validateDatabase() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch c.ActivityStore {
	case ActivityStoreSQL:
	case ActivityStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when ACTIVITY_STORE=%s", ActivityStoreMongo)
		}
	default:
		return fmt.Errorf("unsupported ACTIVITY_STORE: %s", c.ActivityStore)
	}

	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns)
	}
	return nil
}
