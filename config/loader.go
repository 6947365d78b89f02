package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/reqkit/logger"
)

// FileSystem abstracts file access for the loader (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and env files for a program.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns explicit paths when given, otherwise the first file
// found in the standard locations.
func (r *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configSearchPaths(name))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envSearchPaths(name))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, path := range paths {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

func configSearchPaths(name string) []string {
	var paths []string
	for _, ext := range []string{"yml", "yaml"} {
		paths = append(paths,
			fmt.Sprintf("./cmd/%s/config.%s", name, ext),
			fmt.Sprintf("./config/%s.%s", name, ext),
			fmt.Sprintf("./%s.%s", name, ext),
			fmt.Sprintf("./config.%s", ext),
		)
	}
	return paths
}

func envSearchPaths(name string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", name),
		fmt.Sprintf("./.env.%s", name),
		"./.env",
	}
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix restricts environment overrides to variables starting with
// prefix + "_". The prefix is stripped before mapping to config keys.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// LoadConfig loads configuration for name into cfg: the config file first,
// then the .env file, then environment variables.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)
	return load(name, cfg, files, lc)
}

func load(name string, cfg any, files ResolvedFiles, lc LoaderConfig) error {
	log := logger.WithComponent("config")
	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("Config file loaded", logger.Fields("file", files.ConfigFile))
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("Failed to load .env file", logger.Fields("file", files.EnvFile, "error", err.Error()))
		}
	}

	bindEnv(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", name, err)
	}
	return nil
}

// bindEnv copies matching environment variables into v under every nested
// key they could address.
func bindEnv(v *viper.Viper, prefix string) {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			rest, found := strings.CutPrefix(key, prefix+"_")
			if !found {
				continue
			}
			key = rest
		}
		for _, variant := range generateEnvKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants maps an environment variable name onto the config
// keys it may address.
//
//	CLIENT_BASE_URL -> [client_base_url, client.base.url, client.base_url, client_base.url]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
