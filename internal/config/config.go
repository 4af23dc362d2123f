package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	LayoutFile      string
	SeedLayout      bool
	OccupancyPolicy string
	LogLevel        string
	LogFile         string
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, fills in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "/data/stagecanvas.db"),
		LayoutFile:      getEnv("LAYOUT_FILE", ""),
		SeedLayout:      getEnv("SEED_LAYOUT", "1") != "0",
		OccupancyPolicy: getEnv("OCCUPANCY_POLICY", "strict"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
