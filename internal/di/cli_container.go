package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/bitspace/salon-mail-ingest/internal/config"
	"github.com/bitspace/salon-mail-ingest/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	InputFile string
	RawBody   bool
	Subject   string

	// Output flags
	Verbose    bool
	JSONLog    bool
	JSONOutput bool

	// Pipeline flags
	ConfigFile string
	SinkType   string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input mail file (use stdin if not specified)")
	flag.BoolVar(&flags.RawBody, "raw", false, "Treat input as a bare notification body instead of an RFC 5322 message")
	flag.StringVar(&flags.Subject, "subject", "HOT PEPPER Beauty", "Subject used with -raw, or when the message has none")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and body preview")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.BoolVar(&flags.JSONOutput, "json", false, "Print the result as JSON")

	// Pipeline flags
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (defaults are used if not specified)")
	flag.StringVar(&flags.SinkType, "sink", "", "Override sink type (memory, sqlite, mysql, postgres)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags)
		if err != nil {
			return nil, err
		}
		if flags.ConfigFile != "" {
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the config file if given and applies CLI overrides.
// Verification is disabled since a saved message carries no relay signature.
func loadCLIConfig(flags *CLIFlags) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigFile != "" {
		fileCfg, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	} else {
		cfg = config.NewFromViper(config.NewEmptyViper())
	}

	v := cfg.GetViper()
	v.Set("server.receiver_type", "cli")
	v.Set("mailgun.signing_key", "")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json", flags.JSONOutput)
	if flags.SinkType != "" {
		v.Set("sink.type", flags.SinkType)
	}

	return cfg, nil
}
