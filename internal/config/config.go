package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required values (database, signing
// secret) halt startup when missing; the scheduling knobs fall back to
// sensible defaults so a bare deployment still sweeps and generates.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	JWTSecret        string // secret used to verify access tokens and sign check-in tokens
	CheckinGraceMin  int    // minutes before session start that a check-in token becomes valid
	SweepIntervalMin int    // minutes between missed-reservation sweeps
	HorizonDays      int    // how many days ahead the generator materializes sessions
	MinUpcoming      int    // per-pool upcoming-session floor for the availability top-up
	GenerateHours    int    // hours between full generator runs
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		CheckinGraceMin:  intDefault("CHECKIN_GRACE_MIN", 5),
		SweepIntervalMin: intDefault("SWEEP_INTERVAL_MIN", 60),
		HorizonDays:      intDefault("GENERATE_HORIZON_DAYS", 14),
		MinUpcoming:      intDefault("MIN_UPCOMING_SESSIONS", 7),
		GenerateHours:    intDefault("GENERATE_INTERVAL_HOURS", 24),
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

// intDefault reads an integer environment variable, falling back to def
// when the variable is unset.  A malformed value is a configuration
// mistake and halts startup like a missing required variable.
func intDefault(key string, def int) int {
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
