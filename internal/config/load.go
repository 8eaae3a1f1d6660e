package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ESPNANOPB_REPOSITORY_DIR.
const EnvPrefix = "ESPNANOPB"

// DefaultPath is the config file location relative to the working directory.
var DefaultPath = filepath.Join(".espnanopb", "config.yaml")

// LoadOptions selects the sources Load reads from.
type LoadOptions struct {
	// Path is the YAML config file. A missing file is not an error.
	Path string
	// EnvFile is an optional dotenv file. A missing file is not an error.
	EnvFile string
	// Overrides are applied last, keyed by dotted config key.
	Overrides map[string]any
}

// Load reads configuration from defaults, the config file, the dotenv file,
// process environment and overrides, in increasing priority.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			log.Debug().Str("path", opts.Path).Msg("config file not found, using defaults and environment")
		}
	}

	if opts.EnvFile != "" {
		if err := applyEnvFile(v, opts.EnvFile); err != nil {
			return Config{}, err
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("mode", string(def.Mode))
	v.SetDefault("generator.shell", def.Generator.Shell)
	v.SetDefault("generator.script", def.Generator.Script)
	v.SetDefault("generator.args", def.Generator.Args)
	v.SetDefault("generator.dir", def.Generator.Dir)
	v.SetDefault("artifacts.files", def.Artifacts.Files)
	v.SetDefault("artifacts.source_dir", def.Artifacts.SourceDir)
	v.SetDefault("artifacts.destination", def.Artifacts.Destination)
	v.SetDefault("repository.dir", def.Repository.Dir)
	v.SetDefault("repository.remote", def.Repository.Remote)
	v.SetDefault("tag.prefix", def.Tag.Prefix)
	v.SetDefault("tag.require_semver", def.Tag.RequireSemver)
	v.SetDefault("journal.enabled", def.Journal.Enabled)
	v.SetDefault("journal.path", def.Journal.Path)
}

// applyEnvFile copies dotenv entries into v unless the process environment
// already defines them. The process environment itself is left untouched.
func applyEnvFile(v *viper.Viper, path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	keys := make(map[string]string, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		keys[envName(key)] = key
	}
	for name, value := range values {
		key, ok := keys[name]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		v.Set(key, value)
	}
	return nil
}

func envName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return EnvPrefix + "_" + strings.ToUpper(r.Replace(key))
}
