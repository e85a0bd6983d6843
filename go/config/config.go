package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the build, watch and deploy commands read.
// Relative directories are resolved against Root by Load.
type Config struct {
	Root          string `mapstructure:"-"`
	SrcDir        string `mapstructure:"src_dir"`
	BuildDir      string `mapstructure:"build_dir"`
	StaticDir     string `mapstructure:"static_dir"`
	AssetBaseURL  string `mapstructure:"asset_base_url"`
	Banner        string `mapstructure:"banner"`
	PrimaryVendor string `mapstructure:"primary_vendor"`
	Version       string `mapstructure:"version"`
	Verbose       bool   `mapstructure:"verbose"`

	Watch  WatchConfig  `mapstructure:"watch"`
	Sass   SassConfig   `mapstructure:"sass"`
	Deploy DeployConfig `mapstructure:"deploy"`
}

type WatchConfig struct {
	Port     int           `mapstructure:"port"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type SassConfig struct {
	Binary string `mapstructure:"binary"`
}

type DeployConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	Concurrency   int    `mapstructure:"concurrency"`
	ReleasesTable string `mapstructure:"releases_table"`
	Site          string `mapstructure:"site"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("src_dir", "src")
	v.SetDefault("build_dir", "build")
	v.SetDefault("static_dir", "static")
	v.SetDefault("asset_base_url", "https://cdn.a1motion.com/preview/")
	v.SetDefault("banner", "https://github.com/a1motion/preview")
	v.SetDefault("primary_vendor", "vendor/jquery.js")
	v.SetDefault("version", "")
	v.SetDefault("verbose", false)
	v.SetDefault("watch.port", 3000)
	v.SetDefault("watch.debounce", 250*time.Millisecond)
	v.SetDefault("sass.binary", "sass")
	v.SetDefault("deploy.bucket", "public.a1motion.com")
	v.SetDefault("deploy.prefix", "preview")
	v.SetDefault("deploy.concurrency", 8)
	v.SetDefault("deploy.releases_table", "")
	v.SetDefault("deploy.site", "preview")
}

// Load reads site.yaml from root when present and applies SITE_* environment
// overrides on top of the defaults.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("site")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	v.SetEnvPrefix("SITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Root = root
	cfg.SrcDir = resolve(root, cfg.SrcDir)
	cfg.BuildDir = resolve(root, cfg.BuildDir)
	cfg.StaticDir = resolve(root, cfg.StaticDir)
	return &cfg, nil
}

func resolve(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// FindRepoRoot walks up from the working directory until it finds go.mod.
func FindRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
