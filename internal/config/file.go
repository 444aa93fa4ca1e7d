package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadFromFile loads a dotenv file into the process environment and then
// builds the Config. Variables already set in the environment win. A missing
// file is not an error: the environment alone is used.
func LoadFromFile(path string) (Config, error) {
	if path == "" {
		return Load(), nil
	}

	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		logrus.Debugf("Env file %s not found, using environment variables", path)
	}
	return Load(), nil
}
