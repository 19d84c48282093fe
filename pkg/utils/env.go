package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads an optional .env file from the given path and binds every
// environment variable into viper so flags and env share one namespace.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logrus.WithError(err).Warn("[CONFIG] Failed to load .env file")
		}
	}

	viper.AutomaticEnv()
	viper.SetConfigFile(envFile)
	_ = viper.ReadInConfig()
}

// CreateFolder creates each of the given directories if they do not exist yet.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}
