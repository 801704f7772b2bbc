package config

const (
	// DefaultReportDir receives failure and duplicate reports.
	DefaultReportDir = "./reports"

	// DefaultOutputDir receives converted exchange files.
	DefaultOutputDir = "."

	// DefaultEnvFile is loaded into the environment when present.
	DefaultEnvFile = ".env"
)
