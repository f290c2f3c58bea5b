package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"

	"leadgen-scraper/pkg/utils"
)

// keyringService is the service name under which secrets are stored in the
// OS keyring when they are not present in the environment.
const keyringService = "leadgen-scraper"

// Credentials holds all secrets. Secrets never live in the YAML config:
// they come from the environment (.env supported) with an OS keyring
// fallback per key.
type Credentials struct {
	LinkedInUsername string
	LinkedInPassword string
	OpenAIKey        string
	EmailAddress     string
	EmailPassword    string
}

// LoadCredentials resolves all known secrets. Missing values stay empty;
// callers enforce presence per feature with the Require* helpers.
func LoadCredentials(logger *logrus.Entry) Credentials {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	return Credentials{
		LinkedInUsername: lookupSecret("LINKEDIN_USERNAME", logger),
		LinkedInPassword: lookupSecret("LINKEDIN_PASSWORD", logger),
		OpenAIKey:        lookupSecret("OPENAI_API_KEY", logger),
		EmailAddress:     lookupSecret("EMAIL_ADDRESS", logger),
		EmailPassword:    lookupSecret("EMAIL_PASSWORD", logger),
	}
}

// lookupSecret checks the environment first, then the OS keyring.
func lookupSecret(key string, logger *logrus.Entry) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	v, err := keyring.Get(keyringService, key)
	if err != nil {
		if err != keyring.ErrNotFound {
			logger.Debugf("Keyring lookup for %s failed: %v", key, err)
		}
		return ""
	}
	logger.Debugf("Loaded %s from OS keyring", key)
	return v
}

// RequireLinkedIn returns an error when the browser campaign cannot
// authenticate.
func (c Credentials) RequireLinkedIn() error {
	if c.LinkedInUsername == "" || c.LinkedInPassword == "" {
		return utils.WrapErrorf(utils.ErrMissingSecret,
			"LINKEDIN_USERNAME and LINKEDIN_PASSWORD must be set (env, .env, or keyring)")
	}
	return nil
}

// RequireOpenAI returns an error when message generation cannot run.
func (c Credentials) RequireOpenAI() error {
	if c.OpenAIKey == "" {
		return utils.WrapErrorf(utils.ErrMissingSecret,
			"OPENAI_API_KEY must be set (env, .env, or keyring)")
	}
	return nil
}

// RequireEmail returns an error when the report sender cannot authenticate.
func (c Credentials) RequireEmail() error {
	if c.EmailAddress == "" || c.EmailPassword == "" {
		return utils.WrapErrorf(utils.ErrMissingSecret,
			"EMAIL_ADDRESS and EMAIL_PASSWORD must be set (env, .env, or keyring)")
	}
	return nil
}
