package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable this service reads.
	EnvPrefix = "billfold"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BILLFOLD_DB_DSN"
	EnvDBHost = "BILLFOLD_DB_HOST"
	EnvDBUser = "BILLFOLD_DB_USER"
	EnvDBName = "BILLFOLD_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	PubSub    PubSubConfig
	Worker    WorkerConfig
	Reconcile ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BILLFOLD_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BILLFOLD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BILLFOLD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BILLFOLD_SERVICE_KIND" default:"worker"`
}

type DBConfig struct {
	DSN         string `envconfig:"BILLFOLD_DB_DSN"`
	Driver      string `envconfig:"BILLFOLD_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"BILLFOLD_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"BILLFOLD_DB_HOST"`
	LegacyPort     int    `envconfig:"BILLFOLD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BILLFOLD_DB_USER"`
	LegacyPassword string `envconfig:"BILLFOLD_DB_PASSWORD"`
	LegacyName     string `envconfig:"BILLFOLD_DB_NAME"`
	LegacySSLMode  string `envconfig:"BILLFOLD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BILLFOLD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BILLFOLD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BILLFOLD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BILLFOLD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BILLFOLD_REDIS_URL"`
	Address      string        `envconfig:"BILLFOLD_REDIS_ADDR"`
	Password     string        `envconfig:"BILLFOLD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BILLFOLD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BILLFOLD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BILLFOLD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BILLFOLD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BILLFOLD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BILLFOLD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GatewayConfig struct {
	AccessToken string        `envconfig:"BILLFOLD_GATEWAY_ACCESS_TOKEN"`
	LocationID  string        `envconfig:"BILLFOLD_GATEWAY_LOCATION_ID"`
	Env         string        `envconfig:"BILLFOLD_GATEWAY_ENV" default:"sandbox"`
	Timeout     time.Duration `envconfig:"BILLFOLD_GATEWAY_TIMEOUT" default:"30s"`
}

// Environment returns the normalized gateway environment (sandbox/production).
func (g GatewayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(g.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type PubSubConfig struct {
	ProjectID    string `envconfig:"BILLFOLD_PUBSUB_PROJECT_ID"`
	BillingTopic string `envconfig:"BILLFOLD_PUBSUB_BILLING_TOPIC" default:"billfold-billing-events"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `envconfig:"BILLFOLD_WORKER_SWEEP_INTERVAL" default:"1h"`
	Concurrency   int           `envconfig:"BILLFOLD_WORKER_CONCURRENCY" default:"4"`
	MetricsPort   string        `envconfig:"BILLFOLD_WORKER_METRICS_PORT" default:"9090"`
}

type ReconcileConfig struct {
	Fix       bool          `envconfig:"BILLFOLD_RECONCILE_FIX" default:"false"`
	Tolerance string        `envconfig:"BILLFOLD_RECONCILE_TOLERANCE" default:"0.01"`
	Window    time.Duration `envconfig:"BILLFOLD_RECONCILE_WINDOW" default:"48h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
