package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	FilePath string `mapstructure:"file_path"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
}

type ManageConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Ownership OwnershipConfig `mapstructure:"ownership"`
}

// SQLiteConfig points at the relational store holding the membership graph,
// permission grants and permission requests.
type SQLiteConfig struct {
	Path          string `mapstructure:"path"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

type MongoDBConfig struct {
	Database string      `mapstructure:"database"`
	CAPem    string      `mapstructure:"ca_pem"`
	User     string      `mapstructure:"user"`
	Password SecretValue `mapstructure:"password"`
	Port     string      `mapstructure:"port"`
	Host     string      `mapstructure:"host"`
}

// NotifyConfig configures the webhook receiving outgoing notifications.
// An empty endpoint makes notifications log-only.
type NotifyConfig struct {
	Endpoint   string      `mapstructure:"endpoint"`
	Token      SecretValue `mapstructure:"token"`
	TimeoutSec int         `mapstructure:"timeout_sec"`
	// ExpirationNoticeDays is how long before a membership expires its
	// members are warned.
	ExpirationNoticeDays int `mapstructure:"expiration_notice_days"`
	SweepIntervalSec     int `mapstructure:"sweep_interval_sec"`
	// SweepSchedule is a cron expression overriding SweepIntervalSec.
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

func (c NotifyConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c NotifyConfig) ExpirationNotice() time.Duration {
	if c.ExpirationNoticeDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.ExpirationNoticeDays) * 24 * time.Hour
}

func (c NotifyConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSec <= 0 {
		return time.Hour
	}
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Schedule is the cron expression the expiration sweeper runs on.
func (c NotifyConfig) Schedule() string {
	if c.SweepSchedule != "" {
		return c.SweepSchedule
	}
	return "@every " + c.SweepInterval().String()
}

const (
	AuditLogBackendMongo = "mongo"
	AuditLogBackendLog   = "log"
)

type AuditConfig struct {
	// LogBackend selects where audit records go: "mongo" or "log".
	LogBackend string `mapstructure:"log_backend"`
	// AuditorPermission is the permission that marks a user as an auditor.
	AuditorPermission string `mapstructure:"auditor_permission"`
	// ApproverPolicy is an expr expression evaluated for every approver of a
	// group receiving an audited permission. Empty means "auditor".
	ApproverPolicy string `mapstructure:"approver_policy"`
}

type OwnershipConfig struct {
	CacheEnabled bool `mapstructure:"cache_enabled"`
	CacheTTLSec  int  `mapstructure:"cache_ttl_sec"`
	// RestrictedPermissions hide wildcard owners once a specific owner exists.
	RestrictedPermissions []string `mapstructure:"restricted_permissions"`
}

func (c OwnershipConfig) CacheTTL() time.Duration {
	if c.CacheTTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}

var (
	managerCfg *ManageConfig
)

func GetConfig() *ManageConfig {
	return managerCfg
}

func InitManagerConfig(configName string, configPath string) (ManageConfig, error) {
	var cfg ManageConfig
	v := viper.New()
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	if configName == "" {
		configName = "manager_config"
	}
	v.AddConfigPath(GetAbsPath("config"))
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.SetEnvPrefix("MANAGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	err := v.ReadInConfig()
	if err != nil {
		return cfg, err
	}

	err = v.Unmarshal(&cfg)
	if err != nil {
		return cfg, err
	}
	managerCfg = &cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("sqlite.path", "groupgraph.sqlite")
	v.SetDefault("sqlite.max_open_conns", 4)
	v.SetDefault("sqlite.busy_timeout_ms", 5000)
	v.SetDefault("notify.expiration_notice_days", 7)
	v.SetDefault("notify.sweep_interval_sec", 3600)
	v.SetDefault("audit.log_backend", AuditLogBackendLog)
	v.SetDefault("audit.auditor_permission", "groupgraph.permission.auditor")
	v.SetDefault("ownership.cache_enabled", true)
	v.SetDefault("ownership.cache_ttl_sec", 300)
}

// GetAbsPath returns the absolute path by joining the given paths with the project root directory
func GetAbsPath(paths ...string) string {
	_, filePath, _, _ := runtime.Caller(1)
	basePath := filepath.Dir(filePath)
	rootPath := filepath.Join(basePath, "..")
	return filepath.Join(rootPath, filepath.Join(paths...))
}
