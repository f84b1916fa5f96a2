package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Chain holds the parameters of the chain whose nodes are being
	// verified. The message magic and address version byte together pin
	// signed-message proofs to a single network.
	Chain struct {
		MessageMagic   string `env:"CHAIN_MESSAGE_MAGIC" envDefault:"Bitcoin Signed Message:"`
		AddressVersion uint8  `env:"CHAIN_ADDRESS_VERSION" envDefault:"0"`
	}

	Verification struct {
		ChallengeTTL   time.Duration `env:"CHALLENGE_TTL" envDefault:"24h"`
		EnabledMethods []string      `env:"ENABLED_METHODS" envSeparator:"," envDefault:"message_sign,dns_txt,user_agent,port_challenge,http_file"`
		DNSResolver    string        `env:"DNS_RESOLVER" envDefault:"8.8.8.8:53"`
		DNSTimeout     time.Duration `env:"DNS_TIMEOUT" envDefault:"5s"`
		SweepInterval  time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1m"`
	}

	RateLimit struct {
		InitiatePerHour int `env:"RATE_LIMIT_INITIATE_PER_HOUR" envDefault:"5"`
		CompletePerHour int `env:"RATE_LIMIT_COMPLETE_PER_HOUR" envDefault:"20"`
	}

	// Tier carries the deployment's notion of the current and minimum
	// acceptable client versions for version-currency classification.
	Tier struct {
		CurrentVersion string `env:"NODE_CURRENT_VERSION" envDefault:"0.21.0"`
		MinimumVersion string `env:"NODE_MINIMUM_VERSION" envDefault:"0.19.0"`
	}

	Admin struct {
		IDs []int64 `env:"ADMIN_IDS" envSeparator:","`
	}
}

func Load() *Config {
	// Missing .env is fine; in production the variables are set directly
	// in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
