package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Sales  SalesConfig
}

type ServerConfig struct {
	Addr string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DBConfig) DSN() string {
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.Name + " sslmode=disable"
}

type AuthConfig struct {
	JWTSecret string
}

type SalesConfig struct {
	// TaxRate is the sales tax applied to the discounted subtotal,
	// e.g. "0.0825" for 8.25%.
	TaxRate decimal.Decimal
	// RegisterVarianceWarn is the absolute drawer variance that flags a
	// session close for review.
	RegisterVarianceWarn decimal.Decimal
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.0825"))
	if err != nil {
		log.Printf("Invalid TAX_RATE, falling back to 8.25%%: %v", err)
		taxRate = decimal.NewFromFloat(0.0825)
	}

	varianceWarn, err := decimal.NewFromString(getEnv("REGISTER_VARIANCE_WARN", "1.00"))
	if err != nil {
		log.Printf("Invalid REGISTER_VARIANCE_WARN, falling back to 1.00: %v", err)
		varianceWarn = decimal.NewFromInt(1)
	}

	return Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "tillpoint"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-only-secret"),
		},
		Sales: SalesConfig{
			TaxRate:              taxRate,
			RegisterVarianceWarn: varianceWarn,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
