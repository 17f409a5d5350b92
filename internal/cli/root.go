package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/logging"
	"github.com/ppiankov/evidenceview/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	envFile string
	verbose bool

	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "evidenceview",
	Short: "evidenceview - ranked evidence views for AML screening matches",
	Long: `evidenceview turns the evidence attached to an AML screening match into a
ranked, capped and expandable list.

Evidences without a source link are dropped, the rest are ordered by
credibility (High, Medium, Low, then unranked) and untitled records get
a positional title. Only the first few records are shown until the list
is expanded.

Evidence lists come from an HTTP backend (source.base_url) or a local
JSON/YAML fixture (source.file).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level, cfg.Log.Development)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "evidenceview %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.evidenceview/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("source-url", "", "evidence API base URL")
	flags.String("source-file", "", "JSON or YAML fixture keyed by match id")
	flags.Int("records", 3, "number of evidences shown before expanding")
	flags.Int("clamp", 3, "summary lines shown per evidence (0 = unlimited)")
	flags.StringP("format", "o", "text", "output format (text, json, markdown)")
	flags.Bool("no-cache", false, "disable cache (force fresh fetch)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("source.base_url", flags.Lookup("source-url"))
	_ = viper.BindPFlag("source.file", flags.Lookup("source-file"))
	_ = viper.BindPFlag("view.records_to_display", flags.Lookup("records"))
	_ = viper.BindPFlag("view.lines_to_clamp", flags.Lookup("clamp"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the dotenv file, config file and ENV variables
func initConfig() {
	if envFile != "" {
		// A missing .env file is normal; real environment variables win
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) && verbose {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".evidenceview"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match EVIDENCEVIEW_*
	viper.SetEnvPrefix("EVIDENCEVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("source.token")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	registerDefaults(cfg)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// registerDefaults makes every key known to viper so environment
// variables are picked up by Unmarshal
func registerDefaults(cfg *model.Config) {
	defaults := map[string]any{
		"source.base_url":                   cfg.Source.BaseURL,
		"source.file":                       cfg.Source.File,
		"source.timeout":                    cfg.Source.Timeout,
		"source.user_agent":                 cfg.Source.UserAgent,
		"source.max_body_bytes":             cfg.Source.MaxBodyBytes,
		"source.insecure_tls":               cfg.Source.InsecureTLS,
		"source.http_proxy":                 cfg.Source.HTTPProxy,
		"source.https_proxy":                cfg.Source.HTTPSProxy,
		"source.no_proxy":                   cfg.Source.NoProxy,
		"cache.enabled":                     cfg.Cache.Enabled,
		"cache.backend":                     cfg.Cache.Backend,
		"cache.dir":                         cfg.Cache.Dir,
		"cache.memory_ttl":                  cfg.Cache.MemoryTTL,
		"cache.disk_ttl":                    cfg.Cache.DiskTTL,
		"cache.redis_addr":                  cfg.Cache.RedisAddr,
		"view.list_title":                   cfg.View.ListTitle,
		"view.records_to_display":           cfg.View.RecordsToDisplay,
		"view.lines_to_clamp":               cfg.View.LinesToClamp,
		"view.notify_on_refresh":            cfg.View.NotifyOnRefresh,
		"rate_limiting.requests_per_second": cfg.RateLimiting.RequestsPerSecond,
		"rate_limiting.burst_size":          cfg.RateLimiting.BurstSize,
		"concurrency.workers":               cfg.Concurrency.Workers,
		"concurrency.validation_workers":    cfg.Concurrency.ValidationWorkers,
		"link_check.timeout":                cfg.LinkCheck.Timeout,
		"link_check.respect_robots":         cfg.LinkCheck.RespectRobots,
		"output.format":                     cfg.Output.Format,
		"output.verbose":                    cfg.Output.Verbose,
		"log.level":                         cfg.Log.Level,
		"log.development":                   cfg.Log.Development,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}
