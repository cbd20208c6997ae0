// Package settings loads anncsu-update configuration from the environment,
// an optional .env file and command line flags.
package settings

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "ANNCSU_UPDATE"
	DefaultEnvFile = ".env"

	KeyMunicipalityCode  = "codice_comune"
	KeyDistanceThreshold = "coordinate_distance_threshold"
	KeyUpdateMethod      = "update_method"
	KeyAPIType           = "api_type"
	KeyCLIPath           = "cli_path"
	KeyRegistryURL       = "registry_url"
)

var ErrMissingSetting = errors.New("missing required setting")

type Settings struct {
	// MunicipalityCode is the ISTAT code of the comune. It must be set but
	// may be empty.
	MunicipalityCode  string
	DistanceThreshold float64
	UpdateMethod      string
	APIType           string
	CLIPath           string
	// RegistryURL is either the ANNCSU API base URL or a connection string
	// for a database mirror of the register.
	RegistryURL string
}

func (s Settings) Verify() error {
	if !(s.DistanceThreshold > 0) {
		return errors.Newf("%s must be positive, got %g", KeyDistanceThreshold, s.DistanceThreshold)
	}
	if s.UpdateMethod == "" {
		return errors.Newf("%s must not be empty", KeyUpdateMethod)
	}
	if s.APIType == "" {
		return errors.Newf("%s must not be empty", KeyAPIType)
	}
	return nil
}

// EnvVar returns the environment variable read for key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

var keys = []string{
	KeyMunicipalityCode,
	KeyDistanceThreshold,
	KeyUpdateMethod,
	KeyAPIType,
	KeyCLIPath,
	KeyRegistryURL,
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	v.SetDefault(KeyDistanceThreshold, 0.00001)
	v.SetDefault(KeyUpdateMethod, "4")
	v.SetDefault(KeyAPIType, "pa")
	v.SetDefault(KeyCLIPath, "anncsu")
	v.SetDefault(KeyRegistryURL, "")
	return v
}

// readEnvFile merges the ANNCSU_UPDATE_ entries of a dotenv file into v.
// Process environment variables keep precedence over the file.
func readEnvFile(v *viper.Viper, path string) error {
	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("env")
	if err := f.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "error reading %s", path)
	}
	prefix := strings.ToLower(EnvPrefix) + "_"
	values := make(map[string]interface{})
	for _, k := range f.AllKeys() {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			values[name] = f.Get(k)
		}
	}
	return v.MergeConfigMap(values)
}

// Load reads settings. envFile may be empty to skip reading a dotenv file;
// the default .env is skipped silently when it does not exist. Flags that
// were changed on the command line override every other source.
func Load(envFile string, flags *pflag.FlagSet, flagKeys map[string]string) (Settings, error) {
	v := newViper()
	if envFile != "" {
		_, statErr := os.Stat(envFile)
		switch {
		case statErr == nil:
			if err := readEnvFile(v, envFile); err != nil {
				return Settings{}, err
			}
		case envFile == DefaultEnvFile && os.IsNotExist(statErr):
		default:
			return Settings{}, errors.Wrapf(statErr, "error reading %s", envFile)
		}
	}
	if flags != nil {
		for key, flagName := range flagKeys {
			if f := flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, errors.Wrapf(err, "error binding flag %s", flagName)
				}
			}
		}
	}

	if !v.IsSet(KeyMunicipalityCode) {
		return Settings{}, errors.Mark(
			errors.Newf("%s must be set, even if empty", EnvVar(KeyMunicipalityCode)),
			ErrMissingSetting,
		)
	}
	s := Settings{
		MunicipalityCode:  strings.TrimSpace(v.GetString(KeyMunicipalityCode)),
		DistanceThreshold: v.GetFloat64(KeyDistanceThreshold),
		UpdateMethod:      v.GetString(KeyUpdateMethod),
		APIType:           v.GetString(KeyAPIType),
		CLIPath:           v.GetString(KeyCLIPath),
		RegistryURL:       v.GetString(KeyRegistryURL),
	}
	if err := s.Verify(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
