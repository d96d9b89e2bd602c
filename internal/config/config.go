package config

import (
	"fmt"
	"time"
)

// Language pairs a provider language code with the short label used
// when composing translated lines ("es:[...]").
type Language struct {
	Code  string
	Label string
}

type Config struct {
	ServerAddr     string
	DatabaseDriver string
	DatabaseDSN    string
	AllowedOrigins []string

	// Translation policy. PrimaryLanguage is the room language for
	// which no translation is triggered on send; TargetLanguages are
	// the languages primary-language text is translated into when the
	// recipient's translate setting is on.
	PrimaryLanguage Language
	TargetLanguages []Language

	MSClientId        string
	MSClientSecret    string
	MSEndpoint        string
	NaverClientId     string
	NaverClientSecret string
	NaverEndpoint     string
	ProviderTimeout   time.Duration

	PushGatewayURL string
	PushAuthToken  string
	PushTitle      string

	UploadDir string
}

func NewConfig(serverAddr, driver, dsn string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if dsn == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	return &Config{
		ServerAddr:      serverAddr,
		DatabaseDriver:  driver,
		DatabaseDSN:     dsn,
		AllowedOrigins:  allowedOrigins,
		PrimaryLanguage: Language{Code: "ko", Label: "ko"},
		TargetLanguages: []Language{
			{Code: "es", Label: "es"},
			{Code: "zh-CHS", Label: "ch"},
		},
		ProviderTimeout: 15 * time.Second,
		PushTitle:       "translate-chat",
		UploadDir:       "uploads",
	}, nil
}
