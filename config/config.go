package config

import (
	"log"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, populated from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:5173"`
	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB     string `env:"MONGO_DB" envDefault:"butikkdb"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AdminSecret string `env:"ADMIN_SECRET"`
	UploadDir   string `env:"UPLOAD_DIR" envDefault:"./static/productpic"`

	Payments Payments `envPrefix:"PAYMENT_"`
	SMTP     SMTP     `envPrefix:"SMTP_"`
}

// Payments configures the hosted-checkout provider client.
type Payments struct {
	APIBase       string `env:"API_BASE" envDefault:"https://api.checkout.example"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"nok"`
}

// SMTP configures the confirmation-mail sender. Empty Host means mail is
// logged instead of sent.
type SMTP struct {
	Host string `env:"HOST"`
	Port string `env:"PORT" envDefault:"587"`
	From string `env:"FROM" envDefault:"butikk@localhost"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
