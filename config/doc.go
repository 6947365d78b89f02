// Package config loads reqkit configuration from YAML files, .env files and
// environment variables.
//
// Viper reads the first config file found in the standard locations, then
// environment variables carrying the configured prefix override file values
// (REQKIT_CLIENT_TIMEOUT sets client.timeout):
//
//	var cfg struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client client.Config `yaml:"client" mapstructure:"client"`
//	}
//	err := config.LoadConfig("reqkit", &cfg, config.WithEnvPrefix("REQKIT"))
package config
