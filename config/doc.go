// Package config loads application configuration from a YAML file, an
// optional .env file and the environment, using Viper.
//
// # Usage
//
//	var cfg setup.Config
//	if err := config.Load("anyhttp", &cfg); err != nil {
//		return err
//	}
//
// Environment variables carrying the prefix override file values. The
// prefix defaults to the upper-cased name, so ANYHTTP_COOKIES_PERSIST_PATH
// sets cookies.persist_path. After decoding, Load calls ApplyDefaults and
// Validate when the target implements them.
package config
