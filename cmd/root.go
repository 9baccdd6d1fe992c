package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/jobpilot/internal/filtering"
	"github.com/spigell/jobpilot/internal/preferences"
)

const (
	app = "jobpilot"
)

type Config struct {
	WorkDir     string                     `mapstructure:"work-dir" validate:"required"`
	ResumeFile  string                     `mapstructure:"resume-file"`
	Preferences map[string]any             `mapstructure:"preferences"`
	Blacklist   *filtering.BlacklistConfig `mapstructure:"blacklist"`
	AI          *AIConfig                  `mapstructure:"ai" validate:"required"`
}

type AIConfig struct {
	Provider       string           `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	APIKey         string           `mapstructure:"api-key"`
	APIKeyFile     string           `mapstructure:"api-key-file"`
	Model          string           `mapstructure:"model"`
	MaxDailyCalls  int              `mapstructure:"max-daily-calls" validate:"gte=0"`
	MaxRetries     int              `mapstructure:"max-retries" validate:"gte=0,lte=10"`
	RetryBackoff   time.Duration    `mapstructure:"retry-backoff" validate:"gte=0"`
	BatchSize      int              `mapstructure:"batch-size" validate:"gte=0,lte=50"`
	MatchThreshold int              `mapstructure:"match-threshold" validate:"gte=1,lte=100"`
	MaxLogLength   int              `mapstructure:"max-log-length" validate:"gte=0"`
	Heuristics     HeuristicsConfig `mapstructure:"heuristics"`
}

type HeuristicsConfig struct {
	CitizenshipRequired bool `mapstructure:"citizenship-required"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobpilot screens job postings and answers application questions with a cached, quota-aware model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"work-dir":        "JOBPILOT_WORK_DIR",
		"ai.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.model":        "GEMINI_MODEL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("work-dir", "work")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-retries", 3)
	viper.SetDefault("ai.retry-backoff", "20s")
	viper.SetDefault("ai.batch-size", 10)
	viper.SetDefault("ai.match-threshold", 70)
	viper.SetDefault("ai.max-log-length", 200)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobpilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("work-dir", "", "directory holding caches, usage counters and the decision ledger")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
}

func initConfig() {
	// version does not need any configuration
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and environment are enough.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config, viper.DecodeHook(decodeHook()))
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("empty configuration")
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(config); err != nil {
		return config, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// structuredPreferences decodes the free-form preferences tree into the typed
// view used by strict rules and intent resolution.
func (c *Config) structuredPreferences() (*preferences.Preferences, error) {
	prefs := &preferences.Preferences{}
	if len(c.Preferences) == 0 {
		return prefs, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook(),
		WeaklyTypedInput: true,
		Result:           prefs,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(c.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	if err := validator.New().Struct(prefs); err != nil {
		return nil, fmt.Errorf("validate preferences: %w", err)
	}
	return prefs, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		thousandsToIntHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// thousandsToIntHook accepts integers written with thousands separators,
// such as "14,400" or "14_400".
func thousandsToIntHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Int {
			return data, nil
		}

		raw := strings.NewReplacer(",", "", "_", "", " ", "").Replace(data.(string))
		if raw == "" {
			return 0, nil
		}

		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", data, err)
		}
		return n, nil
	}
}
