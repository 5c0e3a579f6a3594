package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"parley/internal/room"

	"gopkg.in/yaml.v3"
)

const (
	StoreEngineFile     = "file"
	StoreEnginePostgres = "postgres"
)

type Config struct {
	Port              int
	AuthToken         string
	StateDir          string
	StoreEngine       string
	PostgresURL       string
	TemporalHost      string
	TemporalNamespace string
	TemporalEnabled   bool
	SummarizerBaseURL string
	SummarizerAPIKey  string
	SummarizerModel   string
	RoomIdleTTL       time.Duration
	AllowedOrigins    []string
	Verbose           bool
	Quiet             bool
	ShowVersion       bool
	Sources           map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceFile    configSource = "file"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
)

// fileConfig is the YAML configuration file shape. Absent keys keep their
// zero value and are skipped during layering.
type fileConfig struct {
	Port        int    `yaml:"port"`
	AuthToken   string `yaml:"auth_token"`
	StateDir    string `yaml:"state_dir"`
	Store       string `yaml:"store"`
	PostgresURL string `yaml:"postgres_url"`
	Temporal    struct {
		Host      string `yaml:"host"`
		Namespace string `yaml:"namespace"`
		Enabled   *bool  `yaml:"enabled"`
	} `yaml:"temporal"`
	Summarizer struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"summarizer"`
	RoomIdleTTL    string   `yaml:"room_idle_ttl"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type flagValues struct {
	Port              int
	Token             string
	ConfigPath        string
	StateDir          string
	StoreEngine       string
	PostgresURL       string
	TemporalHost      string
	TemporalNamespace string
	TemporalEnabled   bool
	SummarizerBaseURL string
	SummarizerModel   string
	RoomIdleTTL       time.Duration
	AllowedOrigins    string
	Verbose           bool
	Quiet             bool
	Version           bool
	Set               map[string]bool
}

func defaultConfigValues() Config {
	return Config{
		Port:              8080,
		StateDir:          "data",
		StoreEngine:       StoreEngineFile,
		TemporalHost:      "localhost:7233",
		TemporalNamespace: "default",
		RoomIdleTTL:       room.DefaultIdleTTL,
	}
}

func parseFlags(args []string) (flagValues, error) {
	flags := flagValues{Set: make(map[string]bool)}
	flagSet := flag.NewFlagSet("parley", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	flagSet.IntVar(&flags.Port, "port", 0, "HTTP listen port")
	flagSet.StringVar(&flags.Token, "token", "", "API auth token")
	flagSet.StringVar(&flags.ConfigPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&flags.StateDir, "state-dir", "", "directory for the file store")
	flagSet.StringVar(&flags.StoreEngine, "store", "", "store engine: file or postgres")
	flagSet.StringVar(&flags.PostgresURL, "postgres-url", "", "PostgreSQL connection URL")
	flagSet.StringVar(&flags.TemporalHost, "temporal-host", "", "Temporal frontend host:port")
	flagSet.StringVar(&flags.TemporalNamespace, "temporal-namespace", "", "Temporal namespace")
	flagSet.BoolVar(&flags.TemporalEnabled, "temporal-enabled", false, "run analysis on Temporal")
	flagSet.StringVar(&flags.SummarizerBaseURL, "summarizer-url", "", "OpenAI-compatible base URL")
	flagSet.StringVar(&flags.SummarizerModel, "summarizer-model", "", "summarizer model name")
	flagSet.DurationVar(&flags.RoomIdleTTL, "room-idle-ttl", 0, "idle time before an ended room is evicted")
	flagSet.StringVar(&flags.AllowedOrigins, "allowed-origins", "", "comma-separated websocket origins")
	flagSet.BoolVar(&flags.Verbose, "verbose", false, "debug logging")
	flagSet.BoolVar(&flags.Quiet, "quiet", false, "warnings and errors only")
	flagSet.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return flags, err
	}
	flagSet.Visit(func(f *flag.Flag) {
		flags.Set[f.Name] = true
	})
	return flags, nil
}

func loadConfig(args []string) (Config, error) {
	flags, err := parseFlags(args)
	if err != nil {
		return Config{}, err
	}

	defaults := defaultConfigValues()
	cfg := Config{
		Sources:     make(map[string]configSource),
		ShowVersion: flags.Version,
		Verbose:     flags.Verbose,
		Quiet:       flags.Quiet,
	}

	file, err := loadConfigFile(flags)
	if err != nil {
		return Config{}, err
	}

	port := defaults.Port
	portSource := sourceDefault
	if file.Port > 0 {
		port = file.Port
		portSource = sourceFile
	}
	if rawPort := os.Getenv("PARLEY_PORT"); rawPort != "" {
		if parsed, err := strconv.Atoi(rawPort); err == nil && parsed > 0 {
			port = parsed
			portSource = sourceEnv
		}
	}
	if flags.Set["port"] {
		if flags.Port <= 0 {
			return Config{}, fmt.Errorf("invalid --port: must be > 0")
		}
		port = flags.Port
		portSource = sourceFlag
	}
	cfg.Port = port
	cfg.Sources["port"] = portSource

	token := ""
	tokenSource := sourceDefault
	if file.AuthToken != "" {
		token = file.AuthToken
		tokenSource = sourceFile
	}
	if rawToken := os.Getenv("PARLEY_TOKEN"); rawToken != "" {
		token = rawToken
		tokenSource = sourceEnv
	}
	if flags.Set["token"] {
		token = flags.Token
		tokenSource = sourceFlag
	}
	cfg.AuthToken = token
	cfg.Sources["token"] = tokenSource

	stateDir := defaults.StateDir
	stateDirSource := sourceDefault
	if strings.TrimSpace(file.StateDir) != "" {
		stateDir = file.StateDir
		stateDirSource = sourceFile
	}
	if rawDir := strings.TrimSpace(os.Getenv("PARLEY_STATE_DIR")); rawDir != "" {
		stateDir = rawDir
		stateDirSource = sourceEnv
	}
	if flags.Set["state-dir"] {
		trimmed := strings.TrimSpace(flags.StateDir)
		if trimmed == "" {
			return Config{}, fmt.Errorf("invalid --state-dir: value cannot be empty")
		}
		stateDir = trimmed
		stateDirSource = sourceFlag
	}
	cfg.StateDir = stateDir
	cfg.Sources["state-dir"] = stateDirSource

	storeEngine := defaults.StoreEngine
	storeEngineSource := sourceDefault
	if strings.TrimSpace(file.Store) != "" {
		storeEngine = file.Store
		storeEngineSource = sourceFile
	}
	if rawStore := strings.TrimSpace(os.Getenv("PARLEY_STORE")); rawStore != "" {
		storeEngine = rawStore
		storeEngineSource = sourceEnv
	}
	if flags.Set["store"] {
		storeEngine = strings.TrimSpace(flags.StoreEngine)
		storeEngineSource = sourceFlag
	}
	storeEngine = strings.ToLower(storeEngine)
	if storeEngine != StoreEngineFile && storeEngine != StoreEnginePostgres {
		return Config{}, fmt.Errorf("invalid store engine %q: must be file or postgres", storeEngine)
	}
	cfg.StoreEngine = storeEngine
	cfg.Sources["store"] = storeEngineSource

	postgresURL := ""
	postgresURLSource := sourceDefault
	if strings.TrimSpace(file.PostgresURL) != "" {
		postgresURL = file.PostgresURL
		postgresURLSource = sourceFile
	}
	if rawURL := strings.TrimSpace(os.Getenv("PARLEY_POSTGRES_URL")); rawURL != "" {
		postgresURL = rawURL
		postgresURLSource = sourceEnv
	}
	if flags.Set["postgres-url"] {
		postgresURL = strings.TrimSpace(flags.PostgresURL)
		postgresURLSource = sourceFlag
	}
	cfg.PostgresURL = postgresURL
	cfg.Sources["postgres-url"] = postgresURLSource
	if cfg.StoreEngine == StoreEnginePostgres && cfg.PostgresURL == "" {
		return Config{}, fmt.Errorf("store engine postgres requires a postgres url")
	}

	temporalHost := defaults.TemporalHost
	temporalHostSource := sourceDefault
	if strings.TrimSpace(file.Temporal.Host) != "" {
		temporalHost = file.Temporal.Host
		temporalHostSource = sourceFile
	}
	if rawHost := strings.TrimSpace(os.Getenv("PARLEY_TEMPORAL_HOST")); rawHost != "" {
		temporalHost = rawHost
		temporalHostSource = sourceEnv
	}
	if flags.Set["temporal-host"] {
		temporalHost = flags.TemporalHost
		temporalHostSource = sourceFlag
	}
	cfg.TemporalHost = temporalHost
	cfg.Sources["temporal-host"] = temporalHostSource

	temporalNamespace := defaults.TemporalNamespace
	temporalNamespaceSource := sourceDefault
	if strings.TrimSpace(file.Temporal.Namespace) != "" {
		temporalNamespace = file.Temporal.Namespace
		temporalNamespaceSource = sourceFile
	}
	if rawNamespace := strings.TrimSpace(os.Getenv("PARLEY_TEMPORAL_NAMESPACE")); rawNamespace != "" {
		temporalNamespace = rawNamespace
		temporalNamespaceSource = sourceEnv
	}
	if flags.Set["temporal-namespace"] {
		temporalNamespace = flags.TemporalNamespace
		temporalNamespaceSource = sourceFlag
	}
	cfg.TemporalNamespace = temporalNamespace
	cfg.Sources["temporal-namespace"] = temporalNamespaceSource

	temporalEnabled := false
	temporalEnabledSource := sourceDefault
	if file.Temporal.Enabled != nil {
		temporalEnabled = *file.Temporal.Enabled
		temporalEnabledSource = sourceFile
	}
	if rawEnabled := strings.TrimSpace(os.Getenv("PARLEY_TEMPORAL_ENABLED")); rawEnabled != "" {
		if parsed, err := strconv.ParseBool(rawEnabled); err == nil {
			temporalEnabled = parsed
			temporalEnabledSource = sourceEnv
		}
	}
	if flags.Set["temporal-enabled"] {
		temporalEnabled = flags.TemporalEnabled
		temporalEnabledSource = sourceFlag
	}
	cfg.TemporalEnabled = temporalEnabled
	cfg.Sources["temporal-enabled"] = temporalEnabledSource

	summarizerBaseURL := ""
	summarizerBaseURLSource := sourceDefault
	if strings.TrimSpace(file.Summarizer.BaseURL) != "" {
		summarizerBaseURL = file.Summarizer.BaseURL
		summarizerBaseURLSource = sourceFile
	}
	if rawURL := strings.TrimSpace(os.Getenv("PARLEY_SUMMARIZER_URL")); rawURL != "" {
		summarizerBaseURL = rawURL
		summarizerBaseURLSource = sourceEnv
	}
	if flags.Set["summarizer-url"] {
		summarizerBaseURL = strings.TrimSpace(flags.SummarizerBaseURL)
		summarizerBaseURLSource = sourceFlag
	}
	cfg.SummarizerBaseURL = summarizerBaseURL
	cfg.Sources["summarizer-url"] = summarizerBaseURLSource

	// The API key never comes from flags: process listings leak them.
	summarizerAPIKey := file.Summarizer.APIKey
	summarizerAPIKeySource := sourceDefault
	if summarizerAPIKey != "" {
		summarizerAPIKeySource = sourceFile
	}
	if rawKey := os.Getenv("PARLEY_SUMMARIZER_KEY"); rawKey != "" {
		summarizerAPIKey = rawKey
		summarizerAPIKeySource = sourceEnv
	}
	cfg.SummarizerAPIKey = summarizerAPIKey
	cfg.Sources["summarizer-key"] = summarizerAPIKeySource

	summarizerModel := "gpt-4o-mini"
	summarizerModelSource := sourceDefault
	if strings.TrimSpace(file.Summarizer.Model) != "" {
		summarizerModel = file.Summarizer.Model
		summarizerModelSource = sourceFile
	}
	if rawModel := strings.TrimSpace(os.Getenv("PARLEY_SUMMARIZER_MODEL")); rawModel != "" {
		summarizerModel = rawModel
		summarizerModelSource = sourceEnv
	}
	if flags.Set["summarizer-model"] {
		summarizerModel = strings.TrimSpace(flags.SummarizerModel)
		summarizerModelSource = sourceFlag
	}
	cfg.SummarizerModel = summarizerModel
	cfg.Sources["summarizer-model"] = summarizerModelSource

	idleTTL := defaults.RoomIdleTTL
	idleTTLSource := sourceDefault
	if rawTTL := strings.TrimSpace(file.RoomIdleTTL); rawTTL != "" {
		parsed, parseErr := time.ParseDuration(rawTTL)
		if parseErr != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("invalid room_idle_ttl %q in config file", rawTTL)
		}
		idleTTL = parsed
		idleTTLSource = sourceFile
	}
	if rawTTL := strings.TrimSpace(os.Getenv("PARLEY_ROOM_IDLE_TTL")); rawTTL != "" {
		if parsed, parseErr := time.ParseDuration(rawTTL); parseErr == nil && parsed > 0 {
			idleTTL = parsed
			idleTTLSource = sourceEnv
		}
	}
	if flags.Set["room-idle-ttl"] {
		if flags.RoomIdleTTL <= 0 {
			return Config{}, fmt.Errorf("invalid --room-idle-ttl: must be > 0")
		}
		idleTTL = flags.RoomIdleTTL
		idleTTLSource = sourceFlag
	}
	cfg.RoomIdleTTL = idleTTL
	cfg.Sources["room-idle-ttl"] = idleTTLSource

	origins := file.AllowedOrigins
	originsSource := sourceDefault
	if len(origins) > 0 {
		originsSource = sourceFile
	}
	if rawOrigins := strings.TrimSpace(os.Getenv("PARLEY_ALLOWED_ORIGINS")); rawOrigins != "" {
		origins = splitOrigins(rawOrigins)
		originsSource = sourceEnv
	}
	if flags.Set["allowed-origins"] {
		origins = splitOrigins(flags.AllowedOrigins)
		originsSource = sourceFlag
	}
	cfg.AllowedOrigins = origins
	cfg.Sources["allowed-origins"] = originsSource

	return cfg, nil
}

func loadConfigFile(flags flagValues) (fileConfig, error) {
	path := strings.TrimSpace(flags.ConfigPath)
	explicit := flags.Set["config"]
	if !explicit {
		path = strings.TrimSpace(os.Getenv("PARLEY_CONFIG"))
		if path != "" {
			explicit = true
		} else {
			path = "parley.yaml"
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
