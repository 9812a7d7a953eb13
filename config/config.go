package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	DBURL     string
	JWTSecret string

	UpstreamURL     string
	UpstreamTimeout time.Duration

	CORSOrigin string
}

// Production reports whether APP_ENV selects the production profile.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

func LoadEnv() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return Config{
		Env:             getEnv("APP_ENV", "local"),
		Port:            getEnv("PORT", "8080"),
		DBURL:           mustEnv("DB_URL"),
		JWTSecret:       mustEnv("JWT_SECRET"),
		UpstreamURL:     mustEnv("UPSTREAM_URL"),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
