package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	DBMaxIdleConns   int
	DBMaxOpenConns   int
	DBConnectRetries int // attempts before giving up at startup

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// Billing
	BillingTimezone    string // IANA name of the civil timezone billing runs in
	RolloverCutoffHour int    // daily rollover fires at/after this hour (billing TZ)
	IncomeMonthlyReset bool   // zero income records on the 1st of each month

	// Monthly report export
	ReportExportEnabled bool
	ReportExportDir     string
	ReportFTPHost       string
	ReportFTPPort       int
	ReportFTPUser       string
	ReportFTPPassword   string
	ReportFTPPath       string
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a timestamp-based approach if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// Optional .env file for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file")
	}

	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32) // 64 character hex string
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Sessions will not persist across restarts.")
	}

	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "netbill"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "netbill"),

		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 50),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 15),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// JWT
		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168), // 7 days default

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		// Billing
		BillingTimezone:    getEnv("BILLING_TIMEZONE", "Asia/Karachi"),
		RolloverCutoffHour: getEnvInt("ROLLOVER_CUTOFF_HOUR", 12),
		IncomeMonthlyReset: getEnvBool("INCOME_MONTHLY_RESET", false),

		// Monthly report export
		ReportExportEnabled: getEnvBool("REPORT_EXPORT_ENABLED", false),
		ReportExportDir:     getEnv("REPORT_EXPORT_DIR", "/app/reports"),
		ReportFTPHost:       getEnv("REPORT_FTP_HOST", ""),
		ReportFTPPort:       getEnvInt("REPORT_FTP_PORT", 21),
		ReportFTPUser:       getEnv("REPORT_FTP_USER", ""),
		ReportFTPPassword:   getEnv("REPORT_FTP_PASSWORD", ""),
		ReportFTPPath:       getEnv("REPORT_FTP_PATH", "/reports"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
