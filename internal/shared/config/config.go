package config

import (
	"fmt"
	"net/url"
	"planets-universe/internal/shared/utils"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Logging     LoggingConfig
	Universe    UniverseConfig
	Maintenance MaintenanceConfig
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

// UniverseConfig holds the tolerances and generation parameters shared by the
// checker, the repair engine and the generators.
type UniverseConfig struct {
	MinSystemDistance       float64
	CoordinateTolerance     float64
	MaxPlanetsPerSystem     int
	MinPlanetsPerSystem     int
	GenerationMaxAttempts   int
	OriginFloor             float64
	HomeMinDistance         float64
	HomeSpacing             float64
	RelaxationMaxIterations int
	RepairMaxIterations     int
}

type MaintenanceConfig struct {
	WritesPerSecond float64
	LockTTL         time.Duration
	LockKey         string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Environment: utils.GetEnv("ENVIRONMENT", "development"),
		Database:    loadDatabaseConfig(),
		Redis:       loadRedisConfig(),
		Logging:     loadLoggingConfig(),
		Universe:    loadUniverseConfig(),
		Maintenance: loadMaintenanceConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  utils.GetEnvBool("REDIS_ENABLED", false),
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "5"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "2"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "planets"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "info"),
		JSONFormat: environment == "production",
	}
}

func loadUniverseConfig() UniverseConfig {
	return UniverseConfig{
		MinSystemDistance:       utils.GetEnvFloat("UNIVERSE_MIN_SYSTEM_DISTANCE", 30),
		CoordinateTolerance:     utils.GetEnvFloat("UNIVERSE_COORDINATE_TOLERANCE", 0.1),
		MaxPlanetsPerSystem:     utils.GetEnvInt("UNIVERSE_MAX_PLANETS_PER_SYSTEM", 7),
		MinPlanetsPerSystem:     utils.GetEnvInt("UNIVERSE_MIN_PLANETS_PER_SYSTEM", 1),
		GenerationMaxAttempts:   utils.GetEnvInt("UNIVERSE_GENERATION_MAX_ATTEMPTS", 500),
		OriginFloor:             utils.GetEnvFloat("UNIVERSE_ORIGIN_FLOOR", 50),
		HomeMinDistance:         utils.GetEnvFloat("UNIVERSE_HOME_MIN_DISTANCE", 100),
		HomeSpacing:             utils.GetEnvFloat("UNIVERSE_HOME_SPACING", 50),
		RelaxationMaxIterations: utils.GetEnvInt("UNIVERSE_RELAXATION_MAX_ITERATIONS", 20),
		RepairMaxIterations:     utils.GetEnvInt("UNIVERSE_REPAIR_MAX_ITERATIONS", 10),
	}
}

func loadMaintenanceConfig() MaintenanceConfig {
	lockTTL := utils.GetEnvInt("MAINTENANCE_LOCK_TTL_SECONDS", 600)

	return MaintenanceConfig{
		WritesPerSecond: utils.GetEnvFloat("MAINTENANCE_WRITES_PER_SECOND", 0),
		LockTTL:         time.Duration(lockTTL) * time.Second,
		LockKey:         utils.GetEnv("MAINTENANCE_LOCK_KEY", "planets:universe:maintenance"),
	}
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Universe.MinSystemDistance <= 0 {
		return fmt.Errorf("UNIVERSE_MIN_SYSTEM_DISTANCE must be positive")
	}

	if c.Universe.CoordinateTolerance <= 0 {
		return fmt.Errorf("UNIVERSE_COORDINATE_TOLERANCE must be positive")
	}

	if c.Universe.MaxPlanetsPerSystem < 1 {
		return fmt.Errorf("UNIVERSE_MAX_PLANETS_PER_SYSTEM must be at least 1")
	}

	if c.Universe.MinPlanetsPerSystem < 0 || c.Universe.MinPlanetsPerSystem > c.Universe.MaxPlanetsPerSystem {
		return fmt.Errorf("UNIVERSE_MIN_PLANETS_PER_SYSTEM must be between 0 and %d", c.Universe.MaxPlanetsPerSystem)
	}

	if c.Universe.GenerationMaxAttempts < 1 {
		return fmt.Errorf("UNIVERSE_GENERATION_MAX_ATTEMPTS must be at least 1")
	}

	if c.Universe.RelaxationMaxIterations < 1 || c.Universe.RepairMaxIterations < 1 {
		return fmt.Errorf("iteration limits must be at least 1")
	}

	if c.Maintenance.WritesPerSecond < 0 {
		return fmt.Errorf("MAINTENANCE_WRITES_PER_SECOND cannot be negative")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DatabaseURL returns the postgres:// form of the connection settings, as the
// migration driver does not accept key/value connection strings.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     c.Database.Host + ":" + c.Database.Port,
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
