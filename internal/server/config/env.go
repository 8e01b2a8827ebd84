package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv is a test seam for os.LookupEnv.
var lookupEnv = os.LookupEnv

// parseEnv overlays values from environment variables. Names follow the
// deployment's .env files; token lifetimes are whole minutes (access) and
// whole days (refresh). Malformed numbers panic.
//
// The database DSN is taken from DATABASE_DSN, or assembled from
// POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_DB_PORT and
// POSTGRES_DB when POSTGRES_HOST is set.
func parseEnv(config *Config) {
	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.APIPrefix, "API_V1_PREFIX")
	envString(&config.AccessSecretKey, "SECRET_KEY_ACCESS")
	envString(&config.RefreshSecretKey, "SECRET_KEY_REFRESH")
	envString(&config.SigningAlgorithm, "JWT_SIGNING_ALGORITHM")
	envString(&config.CatalogBaseURL, "ART_INSTITUTE_API_URL")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.LogLevel, "LOG_LEVEL")

	if v, ok := envInt("ACCESS_KEY_TIMEDELTA_MINUTES"); ok {
		config.AccessTokenValidityDuration = time.Duration(v) * time.Minute
	}
	if v, ok := envInt("REFRESH_TOKEN_DAYS"); ok {
		config.RefreshTokenValidityDuration = time.Duration(v) * 24 * time.Hour
	}
	if v, ok := envInt("BCRYPT_COST"); ok {
		config.BcryptCost = v
	}
	if v, ok := envInt("PASSWORD_MIN_LENGTH"); ok {
		config.PasswordMinLength = v
	}
	if v, ok := lookupEnv("DISPOSABLE_EMAIL_DOMAINS"); ok {
		config.DisposableEmailDomains = splitList(v)
	}

	if dsn, ok := postgresDSNFromEnv(); ok {
		config.DatabaseDSN = dsn
	}
	envString(&config.DatabaseDSN, "DATABASE_DSN")
}

func envString(dst *string, name string) {
	if v, ok := lookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string) (int, bool) {
	v, ok := lookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		panic(fmt.Errorf("environment variable %s: %w", name, err))
	}
	return n, true
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func postgresDSNFromEnv() (string, bool) {
	host, ok := lookupEnv("POSTGRES_HOST")
	if !ok || host == "" {
		return "", false
	}

	port := "5432"
	envString(&port, "POSTGRES_DB_PORT")
	var user, password, db string
	envString(&user, "POSTGRES_USER")
	envString(&password, "POSTGRES_PASSWORD")
	envString(&db, "POSTGRES_DB")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String(), true
}
