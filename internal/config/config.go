package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Config holds the client configuration surface: cloud service address and
// credentials, local gateway address and optional local credentials, and
// logging/transport knobs. Everything is env-first; a .env file is honored
// when present.
type Config struct {
	AppEnv string
	Log    struct {
		Level  string // debug, info, warn, error
		Format string // console, json
	}
	Entrez struct {
		URL      string
		Username string
		Password string
	}
	Envoy struct {
		Host        string
		Username    string
		Password    string
		InsecureTLS bool // Envoy units ship self-signed certificates
	}
	HTTP struct {
		TimeoutSeconds int
	}
}

// Load reads configuration from the environment, loading .env first if one
// exists in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Log.Level = getEnv("LOG_LEVEL", "warn")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	cfg.Entrez.URL = getEnv("ENTREZ_URL", "https://entrez.enphaseenergy.com")
	cfg.Entrez.Username = getEnv("ENTREZ_USERNAME", "")
	cfg.Entrez.Password = getEnv("ENTREZ_PASSWORD", "")

	cfg.Envoy.Host = getEnv("ENVOY_HOST", "")
	cfg.Envoy.Username = getEnv("ENVOY_USERNAME", "")
	cfg.Envoy.Password = getEnv("ENVOY_PASSWORD", "")
	cfg.Envoy.InsecureTLS = getBool("ENVOY_INSECURE_TLS", true)

	cfg.HTTP.TimeoutSeconds = getInt("HTTP_TIMEOUT_SECONDS", 30)

	return cfg
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
