package config

// Application constants
const (
	AppName    = "ukhe-kfi"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. UKHE_PIPELINE_WORKERS
	EnvPrefix = "UKHE"
	// EnvConfigFile points at a YAML config file when -config is not given
	EnvConfigFile = "UKHE_CONFIG"
	// DotEnvFile is loaded into the environment before envconfig runs, when present
	DotEnvFile = ".env"

	// Fill policies for pivot cells with no contributing record
	FillZero      = "zero"
	FillUndefined = "undefined"

	DefaultUndefinedToken = "undefined"
	DefaultPeerGroupName  = "russell group filter"

	// Default locations, relative to the working directory
	DefaultInputDir  = "data/raw"
	DefaultOutputDir = "data/output"
	DefaultLogsDir   = "logs"

	// Well-known output file names
	WideFileName     = "wide.csv"
	KFIFileName      = "kfi.csv"
	WorkbookFileName = "kfi.xlsx"
	ManifestFileName = "manifest.json"
	LogFileName      = "ukhe-kfi.log"
)
