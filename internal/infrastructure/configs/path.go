package configs

import (
	"flag"
	"os"

	"github.com/amachi/voicedeck/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the
// --config flag, the VOICEDECK_CONFIG env var, or a set of well-known
// candidates. An empty result means run on defaults and env overrides.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("VOICEDECK_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/voicedeck/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
