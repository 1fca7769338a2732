package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/agmarket"
	"github.com/KisanLab/MandiSaathi/internal/cli"
	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/store"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Mandi Saathi state data
	DefaultStateDir = "/var/lib/mandisaathi"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "mandisaathi.db"
	// DefaultCacheValidityHours is how long cached prices stay fresh
	DefaultCacheValidityHours = 24
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// The OpenAI key is the only hard startup requirement.
	if *flags.openaiKey == "" && !*flags.listSessions && *flags.cleanupDays == 0 {
		slog.Error("OPENAI_API_KEY not set; cannot start")
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	agmarketOpts := buildAgmarketOptions(flags)
	cliOpts := buildCLIOptions(flags)

	slog.Info("Bootstrapping Mandi Saathi with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "agmarket", len(agmarketOpts), "cli", len(cliOpts))
	if err := cli.Run(storeOpts, genaiOpts, agmarketOpts, cliOpts); err != nil {
		slog.Error("Mandi Saathi failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Mandi Saathi exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL        string
	StateDir           string
	OpenAIKey          string
	OpenAIModel        string
	DataGovKey         string
	CacheValidityHours int
	Debug              bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir           *string
	dbDSN              *string
	openaiKey          *string
	openaiModel        *string
	dataGovKey         *string
	cacheValidityHours *int
	sessionID          *string
	listSessions       *bool
	cleanupDays        *int
}

// initializeLogger sets up structured logging; debug level is enabled via
// MANDI_SAATHI_DEBUG.
func initializeLogger() {
	level := slog.LevelInfo
	if os.Getenv("MANDI_SAATHI_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StateDir:           os.Getenv("MANDI_SAATHI_STATE_DIR"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		DataGovKey:         os.Getenv("DATA_GOV_API_KEY"),
		CacheValidityHours: DefaultCacheValidityHours,
	}

	if hours := os.Getenv("CACHE_VALIDITY_HOURS"); hours != "" {
		if parsed, err := strconv.Atoi(hours); err == nil && parsed > 0 {
			config.CacheValidityHours = parsed
		} else {
			slog.Warn("Invalid CACHE_VALIDITY_HOURS, using default", "value", hours, "default", DefaultCacheValidityHours)
		}
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No MANDI_SAATHI_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MANDI_SAATHI_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"DATA_GOV_API_KEY_SET", config.DataGovKey != "",
		"CACHE_VALIDITY_HOURS", config.CacheValidityHours)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:           flag.String("state-dir", config.StateDir, "state directory for Mandi Saathi data (overrides $MANDI_SAATHI_STATE_DIR)"),
		dbDSN:              flag.String("db-dsn", config.DatabaseURL, "database DSN for the session and price cache store (overrides $DATABASE_URL)"),
		openaiKey:          flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:        flag.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		dataGovKey:         flag.String("data-gov-api-key", config.DataGovKey, "data.gov.in API key (overrides $DATA_GOV_API_KEY)"),
		cacheValidityHours: flag.Int("cache-validity-hours", config.CacheValidityHours, "hours a cached price stays fresh (overrides $CACHE_VALIDITY_HOURS)"),
		sessionID:          flag.String("session", "", "resume a stored session by id"),
		listSessions:       flag.Bool("list-sessions", false, "print stored sessions and exit"),
		cleanupDays:        flag.Int("cleanup-days", 0, "purge cached prices older than this many days and exit"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"dataGovKeySet", *flags.dataGovKey != "",
		"cacheValidityHours", *flags.cacheValidityHours,
		"sessionID", *flags.sessionID,
		"listSessions", *flags.listSessions,
		"cleanupDays", *flags.cleanupDays)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAgmarketOptions constructs price provider configuration options
func buildAgmarketOptions(flags Flags) []agmarket.Option {
	var agmarketOpts []agmarket.Option
	if *flags.dataGovKey != "" {
		agmarketOpts = append(agmarketOpts, agmarket.WithAPIKey(*flags.dataGovKey))
	}
	return agmarketOpts
}

// buildCLIOptions constructs CLI surface configuration options
func buildCLIOptions(flags Flags) []cli.Option {
	var cliOpts []cli.Option
	if *flags.sessionID != "" {
		cliOpts = append(cliOpts, cli.WithSessionID(*flags.sessionID))
	}
	if *flags.listSessions {
		cliOpts = append(cliOpts, cli.WithListSessions())
	}
	if *flags.cleanupDays > 0 {
		cliOpts = append(cliOpts, cli.WithCleanupDays(*flags.cleanupDays))
	}
	if *flags.cacheValidityHours > 0 {
		cliOpts = append(cliOpts, cli.WithCacheValidity(time.Duration(*flags.cacheValidityHours)*time.Hour))
	}
	return cliOpts
}
