package config

const (
	defaultLogFile              = "pagemark.log"
	defaultLogLevel             = "debug"
	defaultLogFileMaxSize       = 20
	defaultLogFileMaxBackups    = 3
	defaultLogFileMaxAge        = 28
	defaultLogCompress          = false
	defaultPort                 = 8080
	defaultHost                 = "0.0.0.0"
	defaultData                 = "/var/opt/pagemark"
	defaultDSN                  = defaultData + "/pagemark.db"
	defaultWorkerPoolSize       = 4
	defaultSyncLogRetentionDays = 90
	defaultDisableSignup        = false
)

type Option struct {
	Key   string
	Value interface{}
}

// Why use mapstructure instead of json, if use json as field tags, it can't recgnize the field, since the viper use mapstructure.
// see: https://pkg.go.dev/github.com/mitchellh/mapstructure#hdr-Field_Tags
type Options struct {
	// LogFile is the file to write logs to
	LogFile string `mapstructure:"log_file"`
	// LogLevel is the level of logging to show
	LogLevel string `mapstructure:"log_level"`
	// LogFilemaxSize is the maximum size of the log file before it is rotated
	LogFileMaxSize int `mapstructure:"log_file_max_size"`
	// LogFileMaxBackups is the maximum number of log files to keep
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`
	// LogFileMaxAge is the maximum number of days to keep a log file
	LogFileMaxAge int `mapstructure:"log_file_max_age"`
	// LogCompress is whether or not to compress the log files
	LogCompress bool `mapstructure:"log_compress"`
	// DSN is the URL of the database to connect to (sqlite)
	DSN string `mapstructure:"dsn_uri"`
	// Port is the port to listen on
	Port int `mapstructure:"port"`
	// Host is the host to listen on
	Host string `mapstructure:"host"`
	// Data is the directory to store data
	Data string `mapstructure:"data"`
	// WorkerPoolSize is the number of replication log workers
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// SyncLogRetentionDays is how long replication log entries are kept
	SyncLogRetentionDays int `mapstructure:"sync_log_retention_days"`
	// DisableSignup disables the signup endpoint
	DisableSignup bool `mapstructure:"disable_signup"`
	// Version is the running service version
	Version string `mapstructure:"version"`
}

func GetDefaultOptions() *Options {
	Opts = &Options{
		LogFile:              defaultLogFile,
		LogLevel:             defaultLogLevel,
		LogFileMaxSize:       defaultLogFileMaxSize,
		LogFileMaxBackups:    defaultLogFileMaxBackups,
		LogFileMaxAge:        defaultLogFileMaxAge,
		LogCompress:          defaultLogCompress,
		DSN:                  defaultDSN,
		Port:                 defaultPort,
		Host:                 defaultHost,
		Data:                 defaultData,
		WorkerPoolSize:       defaultWorkerPoolSize,
		SyncLogRetentionDays: defaultSyncLogRetentionDays,
		DisableSignup:        defaultDisableSignup,
		Version:              defaultVersion,
	}
	return Opts
}
