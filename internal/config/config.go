package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Engine tuning lives in Engine so the
// reservation core never reads the environment itself.
type Config struct {
	Env              string       // application environment (e.g. "dev", "prod")
	Port             string       // HTTP port to listen on
	StoreDriver      string       // "mysql" or "memory"
	DBUser           string       // database username
	DBPass           string       // database password (optional)
	DBHost           string       // database host address
	DBPort           string       // database port number
	DBName           string       // database name
	AutoMigrate      bool         // apply the embedded schema at startup
	OperatorEmail    string       // bootstrap operator account; empty skips it
	OperatorPassword string
	JWTSecret        string       // secret used to sign JWTs
	AccessTTLMin     int          // access token time-to-live in minutes
	RabbitMQURL      string       // broker URL for booking events; empty disables publishing
	Engine           EngineConfig // reservation engine tuning
}

// Load reads configuration values from a .env file (when present) and the
// environment and returns a Config.  Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log
// message.  Database variables are only required for the mysql store.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8080"),
		StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", "mysql")),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RabbitMQURL:  rabbitURL(),
		Engine:       LoadEngineConfig(),
	}
	if cfg.StoreDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", false)
		cfg.OperatorEmail = os.Getenv("OPERATOR_EMAIL")
		if cfg.OperatorEmail != "" {
			cfg.OperatorPassword = must("OPERATOR_PASSWORD")
		}
	}
	return cfg
}

// rabbitURL resolves the broker URL from RABBITMQ_URL or AMQP_URL.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
