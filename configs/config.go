package config

import (
	"log"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var loadOnce sync.Once

func load() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("PAYOUT_VIEW_TTL", "5m")
	viper.SetDefault("THERAPIST_SHARE_PERCENT", 50)
	viper.SetDefault("ORG_GRACE_PERIOD", "72h")
	viper.SetDefault("APP_TIMEZONE", "UTC")
	viper.SetDefault("PAYOUTS_PAGE_PATH", "/dashboard/payouts")
}

func Config(key string) string {
	loadOnce.Do(load)
	return viper.GetString(key)
}

func Int(key string) int {
	loadOnce.Do(load)
	return viper.GetInt(key)
}

func Duration(key string) time.Duration {
	loadOnce.Do(load)
	return viper.GetDuration(key)
}

// Set overrides a key at runtime. Tests use it instead of touching the environment.
func Set(key string, value any) {
	loadOnce.Do(load)
	viper.Set(key, value)
}

// Location resolves APP_TIMEZONE, falling back to UTC when the zone is unknown.
func Location() *time.Location {
	loc, err := time.LoadLocation(Config("APP_TIMEZONE"))
	if err != nil {
		return time.UTC
	}
	return loc
}
