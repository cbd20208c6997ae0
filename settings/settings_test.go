package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(EnvVar(k)); ok {
			require.NoError(t, os.Unsetenv(EnvVar(k)))
			t.Cleanup(func() { _ = os.Setenv(EnvVar(k), v) })
		}
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		envFile     string
		env         map[string]string
		args        []string
		expected    Settings
		expectedErr string
	}{
		{
			desc:    "from env file",
			envFile: "ANNCSU_UPDATE_CODICE_COMUNE=I501\n",
			expected: Settings{
				MunicipalityCode:  "I501",
				DistanceThreshold: 0.00001,
				UpdateMethod:      "4",
				APIType:           "pa",
				CLIPath:           "anncsu",
			},
		},
		{
			desc:    "empty value allowed",
			envFile: "ANNCSU_UPDATE_CODICE_COMUNE=\n",
			expected: Settings{
				DistanceThreshold: 0.00001,
				UpdateMethod:      "4",
				APIType:           "pa",
				CLIPath:           "anncsu",
			},
		},
		{
			desc:        "missing key",
			expectedErr: "ANNCSU_UPDATE_CODICE_COMUNE must be set, even if empty",
		},
		{
			desc:        "unprefixed keys are ignored",
			envFile:     "CODICE_COMUNE=I501\n",
			expectedErr: "ANNCSU_UPDATE_CODICE_COMUNE must be set, even if empty",
		},
		{
			desc:    "environment wins over file",
			envFile: "ANNCSU_UPDATE_CODICE_COMUNE=I501\nANNCSU_UPDATE_COORDINATE_DISTANCE_THRESHOLD=0.5\n",
			env: map[string]string{
				"ANNCSU_UPDATE_CODICE_COMUNE": "H501",
				"ANNCSU_UPDATE_API_TYPE":      "gestori",
				"ANNCSU_UPDATE_REGISTRY_URL":  "https://anncsu.example.it",
			},
			expected: Settings{
				MunicipalityCode:  "H501",
				DistanceThreshold: 0.5,
				UpdateMethod:      "4",
				APIType:           "gestori",
				CLIPath:           "anncsu",
				RegistryURL:       "https://anncsu.example.it",
			},
		},
		{
			desc:    "flags win over everything",
			envFile: "ANNCSU_UPDATE_CODICE_COMUNE=I501\n",
			env:     map[string]string{"ANNCSU_UPDATE_COORDINATE_DISTANCE_THRESHOLD": "0.5"},
			args:    []string{"--codice-comune=F205", "--distance-threshold=0.25"},
			expected: Settings{
				MunicipalityCode:  "F205",
				DistanceThreshold: 0.25,
				UpdateMethod:      "4",
				APIType:           "pa",
				CLIPath:           "anncsu",
			},
		},
		{
			desc:        "bad threshold",
			envFile:     "ANNCSU_UPDATE_CODICE_COMUNE=I501\nANNCSU_UPDATE_COORDINATE_DISTANCE_THRESHOLD=0\n",
			expectedErr: "coordinate_distance_threshold must be positive, got 0",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			envFile := ""
			if tc.envFile != "" {
				envFile = writeEnv(t, tc.envFile)
			}
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.String("codice-comune", "", "")
			flags.Float64("distance-threshold", 0, "")
			require.NoError(t, flags.Parse(tc.args))

			s, err := Load(envFile, flags, map[string]string{
				KeyMunicipalityCode:  "codice-comune",
				KeyDistanceThreshold: "distance-threshold",
			})
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, s)
		})
	}
}

func TestLoadMissingKeyMark(t *testing.T) {
	clearEnv(t)
	_, err := Load("", nil, nil)
	require.True(t, errors.Is(err, ErrMissingSetting))
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvVar(KeyMunicipalityCode), "I501")

	// A missing default .env is fine, any other missing file is not.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	_, err = Load(DefaultEnvFile, nil, nil)
	require.NoError(t, err)
	_, err = Load("missing.env", nil, nil)
	require.Error(t, err)
}
