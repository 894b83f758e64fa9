package db

// Config carries the connection settings Dialect and the module's pool
// setup consume. Type selects the backend: postgres in deployments, sqlite
// for local runs (Name is then the file path and the host fields are
// ignored).
type Config struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// Pool limits; durations are in seconds.
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}
