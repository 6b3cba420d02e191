package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Environment is the deployment name taken from APP_ENV, "workspace" when unset
func Environment() string {
	return getEnv("APP_ENV", "workspace")
}

// EnvFilePaths lists .env files from highest to lowest priority
func EnvFilePaths() []string {
	env := Environment()
	return []string{
		".env." + env + ".local",
		".env.local",
		".env." + env,
		".env",
	}
}

// loadEnvFiles loads the .env files that exist. godotenv never overrides a
// variable that is already set, so earlier files take precedence.
func loadEnvFiles() {
	for _, path := range EnvFilePaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: failed to load %s: %v", path, err)
		}
	}
}
