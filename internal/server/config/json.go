package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/travelkeeper/internal/flagx"
	"github.com/dmitrijs2005/travelkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration, so both "90m" and integer nanoseconds are accepted.
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	APIPrefix                    string         `json:"api_prefix"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessSecretKey              string         `json:"access_secret_key"`
	RefreshSecretKey             string         `json:"refresh_secret_key"`
	SigningAlgorithm             string         `json:"signing_algorithm"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	PasswordMinLength            int            `json:"password_min_length"`
	PasswordRequireUpper         *bool          `json:"password_require_upper"`
	PasswordRequireDigit         *bool          `json:"password_require_digit"`
	PasswordRequireSpecial       *bool          `json:"password_require_special"`
	DisposableEmailDomains       []string       `json:"disposable_email_domains"`
	CatalogBaseURL               string         `json:"catalog_base_url"`
	CatalogTimeout               timex.Duration `json:"catalog_timeout"`
	CatalogCacheTTL              timex.Duration `json:"catalog_cache_ttl"`
	RedisAddr                    string         `json:"redis_addr"`
	LogLevel                     string         `json:"log_level"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// CONFIG environment variable). Without a path nothing happens. An unreadable
// file or invalid JSON panics, as a misconfigured server must not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.APIPrefix, c.APIPrefix)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessSecretKey, c.AccessSecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	setString(&config.CatalogBaseURL, c.CatalogBaseURL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogLevel, c.LogLevel)

	if !c.AccessTokenValidityDuration.IsZero() {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if !c.RefreshTokenValidityDuration.IsZero() {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if !c.CatalogTimeout.IsZero() {
		config.CatalogTimeout = c.CatalogTimeout.Duration
	}
	if !c.CatalogCacheTTL.IsZero() {
		config.CatalogCacheTTL = c.CatalogCacheTTL.Duration
	}
	if !c.ShutdownTimeout.IsZero() {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}

	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.PasswordMinLength != 0 {
		config.PasswordMinLength = c.PasswordMinLength
	}
	if c.PasswordRequireUpper != nil {
		config.PasswordRequireUpper = *c.PasswordRequireUpper
	}
	if c.PasswordRequireDigit != nil {
		config.PasswordRequireDigit = *c.PasswordRequireDigit
	}
	if c.PasswordRequireSpecial != nil {
		config.PasswordRequireSpecial = *c.PasswordRequireSpecial
	}
	if c.DisposableEmailDomains != nil {
		config.DisposableEmailDomains = c.DisposableEmailDomains
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
