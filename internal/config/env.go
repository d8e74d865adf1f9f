package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileName is read from the config directory. Variables already set in
// the environment win over the file.
const EnvFileName = ".env"

// LoadEnvFile loads the .env next to configPath, if there is one.
func LoadEnvFile(configPath string) error {
	path := filepath.Join(filepath.Dir(configPath), EnvFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	logger.Debug("loaded environment file", "path", path)
	return nil
}
