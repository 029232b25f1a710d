package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DispatchRequest = "REQUEST"
	DispatchError   = "ERROR"
)

const (
	PolicyCallerRuns    = "caller-runs"
	PolicyAbort         = "abort"
	PolicyDiscard       = "discard"
	PolicyDiscardOldest = "discard-oldest"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ErrorPageConfig controls what the container error page exposes.
type ErrorPageConfig struct {
	IncludeMessage   bool `mapstructure:"include_message"`
	IncludeException bool `mapstructure:"include_exception"`
}

type FilterConfig struct {
	DispatchTypes []string `mapstructure:"dispatch_types"`
}

type InterceptorConfig struct {
	ExcludePaths []string `mapstructure:"exclude_paths"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type PoolConfig struct {
	CoreSize        int    `mapstructure:"core_size"`
	MaxSize         int    `mapstructure:"max_size"`
	QueueCapacity   int    `mapstructure:"queue_capacity"`
	KeepAlive       string `mapstructure:"keep_alive"`
	RejectionPolicy string `mapstructure:"rejection_policy"`
}

// DemoConfig drives cmd/pooldemo.
type DemoConfig struct {
	TaskCount         int    `mapstructure:"task_count"`
	TaskDuration      string `mapstructure:"task_duration"`
	ResizeDelay       string `mapstructure:"resize_delay"`
	ResizedCoreSize   int    `mapstructure:"resized_core_size"`
	ResizedMaxSize    int    `mapstructure:"resized_max_size"`
	ExtraTaskCount    int    `mapstructure:"extra_task_count"`
	ExtraTaskDuration string `mapstructure:"extra_task_duration"`
	AwaitTimeout      string `mapstructure:"await_timeout"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	ErrorPage   ErrorPageConfig   `mapstructure:"error_page"`
	Filter      FilterConfig      `mapstructure:"filter"`
	Interceptor InterceptorConfig `mapstructure:"interceptor"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Pool        PoolConfig        `mapstructure:"pool"`
	Demo        DemoConfig        `mapstructure:"demo"`
}

func setDefaults() {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("error_page.include_message", true)
	viper.SetDefault("error_page.include_exception", false)
	viper.SetDefault("filter.dispatch_types", []string{DispatchRequest, DispatchError})
	viper.SetDefault("interceptor.exclude_paths", []string{"/health", "/metrics"})
	viper.SetDefault("metrics.buffer_size", 1000)
	viper.SetDefault("pool.core_size", 2)
	viper.SetDefault("pool.max_size", 4)
	viper.SetDefault("pool.queue_capacity", 5)
	viper.SetDefault("pool.keep_alive", "1ms")
	viper.SetDefault("pool.rejection_policy", PolicyCallerRuns)
	viper.SetDefault("demo.task_count", 10)
	viper.SetDefault("demo.task_duration", "2s")
	viper.SetDefault("demo.resize_delay", "3s")
	viper.SetDefault("demo.resized_core_size", 3)
	viper.SetDefault("demo.resized_max_size", 3)
	viper.SetDefault("demo.extra_task_count", 5)
	viper.SetDefault("demo.extra_task_duration", "1s")
	viper.SetDefault("demo.await_timeout", "20s")
}

func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(ValidateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Filter,
			validation.By(func(value interface{}) error {
				fc, ok := value.(FilterConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a FilterConfig")
				}
				return validation.ValidateStruct(&fc,
					validation.Field(&fc.DispatchTypes,
						validation.Required,
						validation.Each(validation.In(DispatchRequest, DispatchError)),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Pool,
			validation.By(validatePoolConfig),
		),
		validation.Field(&c.Demo,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DemoConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DemoConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.TaskCount, validation.Min(0)),
					validation.Field(&dc.ExtraTaskCount, validation.Min(0)),
					validation.Field(&dc.TaskDuration, validation.Required, validation.By(validateDuration)),
					validation.Field(&dc.ExtraTaskDuration, validation.Required, validation.By(validateDuration)),
					validation.Field(&dc.ResizeDelay, validation.Required, validation.By(validateDuration)),
					validation.Field(&dc.AwaitTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&dc.ResizedCoreSize, validation.Min(0)),
					validation.Field(&dc.ResizedMaxSize, validation.Min(1)),
				)
			}),
		),
	)
}

func validatePoolConfig(value interface{}) error {
	pc, ok := value.(PoolConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a PoolConfig")
	}

	err := validation.ValidateStruct(&pc,
		validation.Field(&pc.CoreSize, validation.Min(0)),
		validation.Field(&pc.MaxSize, validation.Required, validation.Min(1)),
		validation.Field(&pc.QueueCapacity, validation.Min(0)),
		validation.Field(&pc.KeepAlive, validation.Required, validation.By(validateDuration)),
		validation.Field(&pc.RejectionPolicy,
			validation.Required,
			validation.In(PolicyCallerRuns, PolicyAbort, PolicyDiscard, PolicyDiscardOldest),
		),
	)
	if err != nil {
		return err
	}

	if pc.MaxSize < pc.CoreSize {
		return validation.NewError("validation_pool_bounds", "max_size must not be lower than core_size")
	}

	return nil
}

// ValidateHostPort accepts "host:port" and ":port" addresses.
func ValidateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

// Duration parses a validated duration string. Invalid input yields zero.
func Duration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
