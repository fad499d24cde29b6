package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses token lifetimes
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The two JWT namespaces are deliberately separate:
// the business secret signs mini-program user tokens, the admin secret signs
// the website back-office tokens.  They must never be interchanged.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret for the business (lpwx) token namespace
	JWTTTL         time.Duration // business token lifetime (default 7 days)
	AdminJWTSecret string        // secret for the admin (dc) token namespace
	AdminJWTTTL    time.Duration // admin token lifetime (default 30 days)
	BcryptCost     int           // bcrypt cost for admin password hashing
	WechatAppID    string        // WeChat mini-program appid
	WechatSecret   string        // WeChat mini-program secret
	WechatMock     bool          // skip the jscode2session call and derive openid from code
	UploadDir      string        // root directory for uploaded files
	AssetHost      string        // optional host prefix for uploaded file URLs
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "7001"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         getenv("DB_NAME", "landport"),
		JWTSecret:      must("JWT_SECRET"),
		JWTTTL:         mustDur("JWT_TTL", 7*24*time.Hour),
		AdminJWTSecret: must("ADMIN_JWT_SECRET"),
		AdminJWTTTL:    mustDur("ADMIN_JWT_TTL", 30*24*time.Hour),
		BcryptCost:     mustIntDefault("BCRYPT_COST", 10),
		WechatAppID:    os.Getenv("WECHAT_APPID"),
		WechatSecret:   os.Getenv("WECHAT_SECRET"),
		WechatMock:     envBool("WECHAT_MOCK", false),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		AssetHost:      os.Getenv("ASSET_HOST"),
	}
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

// mustIntDefault converts the variable into an integer, falling back to def
// when unset.  A present but malformed value is a fatal error.
func mustIntDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustDur parses the variable as a Go duration, falling back to def when
// unset.  A present but malformed value is a fatal error.
func mustDur(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
