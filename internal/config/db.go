package config

import (
	"fmt"
	"os"
)

const defaultDSN = "weather:weather@tcp(localhost:3306)/weathercache?parseTime=true"

// GetDatabaseDSN returns the MySQL connection string.
// Individual DB_* variables win, then DATABASE_DSN, then fallback, then the local default.
func GetDatabaseDSN(fallback string) string {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database)
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn
	}

	if fallback != "" {
		return fallback
	}

	return defaultDSN
}
