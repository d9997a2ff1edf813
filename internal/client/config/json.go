package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/showmeapp/showme/internal/flagx"
	"github.com/showmeapp/showme/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s" or
// as integer nanoseconds.
type JsonConfig struct {
	RemoteBaseURL       string         `json:"remote_base_url"`
	DataDir             string         `json:"data_dir"`
	PollInterval        timex.Duration `json:"poll_interval"`
	CleanupInterval     timex.Duration `json:"cleanup_interval"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values from the JSON file named by the -c or
// -config flag. Absent flag means no JSON is loaded. Read or unmarshal errors
// panic; configuration is resolved once at startup and a broken file should
// be loud.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = jc.RemoteBaseURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	}
	if jc.CleanupInterval.Duration != 0 {
		cfg.CleanupInterval = time.Duration(jc.CleanupInterval.Duration)
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
}
