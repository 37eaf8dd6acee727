// Package config loads process configuration from environment variables
// into tagged structs, using github.com/caarlos0/env/v11 for parsing and
// github.com/joho/godotenv for optional .env files.
//
// Each configuration type is parsed once and cached, so packages can call
// Load for the same struct from anywhere without re-reading the environment.
// Tests use ResetCache or ForceReload after changing variables.
//
//	var cfg struct {
//		Pg    pg.Config
//		Redis redis.Config
//	}
//	config.MustLoad(&cfg)
package config
