// Package config loads and validates the schools service configuration.
//
// Values are layered: built-in defaults, then the optional YAML file named by
// SCHOOLS_CONFIG_FILE, then environment variables.
//
// Server settings:
//
//	SCHOOLS_HOST="0.0.0.0"
//	SCHOOLS_PORT="3000"            # PORT is also honored
//	SCHOOLS_READ_TIMEOUT="30s"
//	SCHOOLS_SHUTDOWN_TIMEOUT="30s"
//	SCHOOLS_CORS_ORIGINS="https://ui.example.com"
//
// Storage settings:
//
//	SCHOOLS_DATA_FILE="data/schools.json"
//	SCHOOLS_DB_DRIVER="mysql"      # mysql, postgres, sqlite3
//	SCHOOLS_DB_HOST / MYSQL_HOST
//	SCHOOLS_DB_USER / MYSQL_USER
//	SCHOOLS_DB_PASSWORD / MYSQL_PASSWORD
//	SCHOOLS_DB_NAME / MYSQL_DATABASE
//
// The relational store is used only when host, user, password and database
// are all set. Otherwise records go to the JSON data file.
//
// Upload settings:
//
//	SCHOOLS_PUBLIC_DIR="public"    # images go to $SCHOOLS_PUBLIC_DIR/schoolImages
//	SCHOOLS_UPLOAD_MAX_BYTES="5242880"
//
// Observability:
//
//	SCHOOLS_LOG_LEVEL="info"
//	SCHOOLS_METRICS_ENABLED="true"
package config
