package sim

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/trace"
	"github.com/speakerver-sim/speakerver-sim/sim/workload"
)

// Strategy names a version-reconciliation protocol.
type Strategy string

const (
	StrategyForeground    Strategy = "SSO"      // random routing, blocking re-enrollment
	StrategySync          Strategy = "SSO-sync" // periodic worker version table
	StrategyHash          Strategy = "SSO-hash" // user-sticky routing
	StrategyMultiProfile  Strategy = "SSO-mul"  // every enrolled version kept in the database
	StrategyDoubleVersion Strategy = "SD"       // workers serve two versions, background re-enrollment
)

// Strategies lists every supported strategy in reporting order.
var Strategies = []Strategy{
	StrategyForeground,
	StrategySync,
	StrategyHash,
	StrategyMultiProfile,
	StrategyDoubleVersion,
}

// ParseStrategy converts a name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStrategy, "%q", name)
}

// Config holds every knob of one simulation run. Times are in seconds of
// virtual time; latencies are Gaussian means.
type Config struct {
	NumUsers         int    `yaml:"num_users" mapstructure:"num_users" validate:"gt=0"`
	NumCloudWorkers  int    `yaml:"num_cloud_workers" mapstructure:"num_cloud_workers" validate:"gt=0"`
	UserDistribution string `yaml:"user_distribution" mapstructure:"user_distribution" validate:"required"`

	ClientRequestInterval  float64 `yaml:"client_request_interval" mapstructure:"client_request_interval" validate:"gt=0"`
	ClientFrontendLatency  float64 `yaml:"client_frontend_latency" mapstructure:"client_frontend_latency" validate:"gte=0"`
	FrontendWorkerLatency  float64 `yaml:"frontend_worker_latency" mapstructure:"frontend_worker_latency" validate:"gte=0"`
	DatabaseReadLatency    float64 `yaml:"database_read_latency" mapstructure:"database_read_latency" validate:"gte=0"`
	DatabaseWriteLatency   float64 `yaml:"database_write_latency" mapstructure:"database_write_latency" validate:"gte=0"`
	WorkerInferenceLatency float64 `yaml:"worker_inference_latency" mapstructure:"worker_inference_latency" validate:"gte=0"`
	FlopsPerInference      float64 `yaml:"flops_per_inference" mapstructure:"flops_per_inference" validate:"gte=0"`

	// Mean of the exponential interval between two rollovers of one worker.
	WorkerUpdateMeanTime float64 `yaml:"worker_update_mean_time" mapstructure:"worker_update_mean_time" validate:"gt=0"`
	// Rollovers per worker; 0 means unbounded.
	MaxWorkerUpdates int `yaml:"max_worker_updates" mapstructure:"max_worker_updates" validate:"gte=0"`
	// Only read by the SSO-sync strategy.
	VersionQueryInterval float64 `yaml:"version_query_interval" mapstructure:"version_query_interval" validate:"gte=0"`

	TimeToRun float64  `yaml:"time_to_run" mapstructure:"time_to_run" validate:"gt=0"`
	Strategy  Strategy `yaml:"strategy" mapstructure:"strategy" validate:"required"`
	Seed      int64    `yaml:"seed" mapstructure:"seed"`

	TraceLevel   string `yaml:"trace_level" mapstructure:"trace_level"`
	LogVerbosity int    `yaml:"log_verbosity" mapstructure:"log_verbosity" validate:"gte=0,lte=3"`
	PrintStats   bool   `yaml:"print_stats" mapstructure:"print_stats"`
}

// DefaultConfig returns the shipped example configuration.
func DefaultConfig() Config {
	return Config{
		NumUsers:               1,
		NumCloudWorkers:        10,
		UserDistribution:       workload.DistributionUniform,
		ClientRequestInterval:  10,
		ClientFrontendLatency:  0.1,
		FrontendWorkerLatency:  0.002,
		DatabaseReadLatency:    0.005,
		DatabaseWriteLatency:   0.005,
		WorkerInferenceLatency: 0.5,
		FlopsPerInference:      1e6,
		WorkerUpdateMeanTime:   3600,
		MaxWorkerUpdates:       1,
		VersionQueryInterval:   60,
		TimeToRun:              10800,
		Strategy:               StrategyForeground,
		Seed:                   42,
		TraceLevel:             string(trace.TraceLevelNone),
		LogVerbosity:           1,
	}
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				rule := fe.Tag()
				if fe.Param() != "" {
					rule += "=" + fe.Param()
				}
				result = multierror.Append(result,
					errors.Errorf("field %s has invalid value %v: %s", fe.Field(), fe.Value(), rule))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}
	if c.Strategy != "" {
		if _, err := ParseStrategy(string(c.Strategy)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.UserDistribution != "" && !workload.IsValidDistribution(c.UserDistribution) {
		result = multierror.Append(result, errors.Errorf("unsupported user_distribution: %q", c.UserDistribution))
	}
	if c.Strategy == StrategySync && c.VersionQueryInterval <= 0 {
		result = multierror.Append(result, errors.New("version_query_interval must be positive for SSO-sync"))
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		result = multierror.Append(result, errors.Errorf("unknown trace_level: %q", c.TraceLevel))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// Apply overlays a key/value mapping (keys are the YAML names) onto the config.
// String values are converted to the field type; unknown keys are rejected.
func (c *Config) Apply(overrides map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(overrides); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// ConfigFromMap builds a config from DefaultConfig plus the given mapping.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Apply(m); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LogLevel maps log_verbosity onto a logrus level.
func (c *Config) LogLevel() logrus.Level {
	switch {
	case c.LogVerbosity <= 0:
		return logrus.ErrorLevel
	case c.LogVerbosity == 1:
		return logrus.WarnLevel
	case c.LogVerbosity == 2:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// VerbosityForLevel is the inverse of LogLevel, used when a logrus level name is given on the command line.
func VerbosityForLevel(level logrus.Level) int {
	switch {
	case level <= logrus.ErrorLevel:
		return 0
	case level == logrus.WarnLevel:
		return 1
	case level == logrus.InfoLevel:
		return 2
	default:
		return 3
	}
}
