package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config representa la configuración del servicio
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Inngest  InngestConfig
	Logging  LoggingConfig
	Email    EmailConfig
	Storage  StorageConfig
	S3       S3Config
	Invoice  InvoiceConfig
}

// ServerConfig representa la configuración del servidor HTTP
type ServerConfig struct {
	Port            string
	Host            string
	Env             string
	BaseURL         string
	ShutdownTimeout time.Duration
}

// DatabaseConfig representa la configuración de la base de datos
type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
	TxTimeout   time.Duration
}

// RedisConfig representa la configuración de Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// InngestConfig representa la configuración de Inngest
type InngestConfig struct {
	EventKey   string
	SigningKey string
	AppID      string
	Dev        bool
}

// Enabled indica si hay credenciales para publicar eventos
func (c InngestConfig) Enabled() bool {
	return c.EventKey != "" || c.Dev
}

// LoggingConfig representa la configuración de logging
type LoggingConfig struct {
	Level  string
	Format string
}

// EmailConfig representa la configuración de email
type EmailConfig struct {
	ResendAPIKey  string
	From          string
	SubjectPrefix string
}

// StorageConfig representa la configuración de almacenamiento de PDFs
type StorageConfig struct {
	Type          string
	Path          string
	Bucket        string
	PublicBaseURL string
}

// S3Config representa la configuración del almacenamiento compatible con S3
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// InvoiceConfig representa la configuración del ciclo de vida de facturas
type InvoiceConfig struct {
	DefaultCurrency string
	IDStrategy      string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// El archivo .env es opcional
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8081"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Env:             getEnv("SERVER_ENV", "development"),
			BaseURL:         getEnv("SERVER_BASE_URL", "http://localhost:8081"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
			Host:        getEnv("PGHOST", "localhost"),
			Port:        getEnv("PGPORT", "5432"),
			User:        getEnv("PGUSER", "postgres"),
			Password:    getEnv("PGPASSWORD", "postgres"),
			Name:        getEnv("PGDATABASE", "invoicing"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
			TxTimeout:   getEnvAsDuration("DB_TX_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Inngest: InngestConfig{
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
			AppID:      getEnv("INNGEST_APP_ID", "invoicing-service"),
			Dev:        getEnvAsBool("INNGEST_DEV", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Email: EmailConfig{
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			From:          getEnv("EMAIL_FROM", "facturas@example.com"),
			SubjectPrefix: getEnv("EMAIL_SUBJECT_PREFIX", "Factura"),
		},
		Storage: StorageConfig{
			Type:          strings.ToLower(getEnv("STORAGE_TYPE", "local")),
			Path:          getEnv("STORAGE_PATH", "./storage"),
			Bucket:        getEnv("STORAGE_BUCKET", "invoices"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Invoice: InvoiceConfig{
			DefaultCurrency: strings.ToUpper(getEnv("INVOICE_DEFAULT_CURRENCY", "USD")),
			IDStrategy:      strings.ToLower(getEnv("INVOICE_ID_STRATEGY", "uuid")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate verifica que los valores enumerados sean conocidos
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: expected postgres or memory", c.Database.Driver)
	}
	switch c.Storage.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: expected local or s3", c.Storage.Type)
	}
	switch c.Invoice.IDStrategy {
	case "uuid", "redis":
	default:
		return fmt.Errorf("invalid INVOICE_ID_STRATEGY %q: expected uuid or redis", c.Invoice.IDStrategy)
	}
	if c.Storage.Type == "s3" && c.S3.Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT is required when STORAGE_TYPE=s3")
	}
	return nil
}

// getEnv obtiene una variable de entorno o retorna un valor por defecto
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtiene una variable de entorno como entero
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool obtiene una variable de entorno como booleano
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration obtiene una variable de entorno como duración
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// IsDevelopment retorna true si el entorno es de desarrollo
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetDSN retorna la cadena de conexión a la base de datos
func (c *Config) GetDSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// GetRedisAddr retorna la dirección de Redis
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}
