// Package config provides centralized configuration for the ukhe-kfi pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// A .env file in the working directory is loaded into the environment first.
//
// # Environment Variables
//
// All environment variables follow the pattern UKHE_<SECTION>_<FIELD>:
//
//	UKHE_PATHS_INPUT_DIR=data/raw
//	UKHE_PIPELINE_WORKERS=4
//	UKHE_PIPELINE_FILL_POLICY=zero
//	UKHE_OUTPUT_PEER_GROUP=10007792,10007774
//	UKHE_LOGGING_LEVEL=debug
//
// # Path Management
//
// Paths resolves the configured directories to absolute locations and owns the
// well-known output file names:
//
//	paths, err := cfg.GetPaths()
//	if err := paths.EnsureDirectories(); err != nil { ... }
package config
