package constants

import "time"

const (
	AppName            = "weekplan"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/weekplan/weekplan.db"
	DefaultConfigFile  = "~/.config/weekplan/config.json"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DefaultTimezone uses the system local timezone
	DefaultTimezone = "Local"

	// Environment variables
	EnvConfig          = "WEEKPLAN_CONFIG"
	EnvDebug           = "WEEKPLAN_DEBUG"
	EnvTimezone        = "WEEKPLAN_TZ"
	EnvDBConnection    = "WEEKPLAN_DB_CONNECTION"
	EnvTestPostgresURL = "WEEKPLAN_TEST_POSTGRES_URL"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "weekplan-"

	// Session lock
	SessionLockfileName = "weekplan.lock"

	// Redis keys
	RedisDefaultKey   = "weekplan:state"
	RedisNextIDSuffix = ":next_id"
	RedisOpTimeout    = 5 * time.Second

	// First id issued by a fresh store
	InitialNextID int64 = 1
)
