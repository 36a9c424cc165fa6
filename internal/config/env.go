package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv returns the first non-empty value among names.
func lookupEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func applyEnvOverrides(cfg *AppConfig) error {
	if v, ok := lookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookupEnv("APP_ENV"); ok {
		cfg.Env = normalizeEnv(v)
	}
	if v, ok := lookupEnv("UPLOAD_DIR"); ok {
		cfg.Paths.Uploads = v
	}
	if v, ok := lookupEnv("LOG_DIR"); ok {
		cfg.Paths.Logs = v
	}
	if v, ok := lookupEnv("REDIS_URL"); ok {
		cfg.Redis.URL = normalizeRedisRawURL(v)
		cfg.Redis.Enable = true
		cfg.RedisURL = cfg.Redis.URLValue()
	}

	if v, ok := lookupEnv("LLM_PROVIDER"); ok {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v, ok := lookupEnv("LLM_ENDPOINT"); ok {
		cfg.LLM.Endpoint = strings.TrimRight(v, "/")
	}
	if v, ok := lookupEnv("LLM_API_KEY", "GROQ_API_KEY"); ok {
		cfg.LLM.APIKey = v
	}
	if v, ok := lookupEnv("LLM_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT %q: %w", v, err)
		}
		cfg.LLM.Timeout = d
	}

	// Per-task keys keep the lowercase names the deployment already uses.
	for _, task := range Tasks {
		tc := cfg.LLM.Tasks[task]
		if v, ok := lookupEnv(task+"_key", strings.ToUpper(task)+"_KEY"); ok {
			tc.APIKey = v
		}
		if v, ok := lookupEnv(task+"_model", strings.ToUpper(task)+"_MODEL"); ok {
			tc.Model = v
		}
		cfg.LLM.Tasks[task] = tc
	}

	if v, ok := lookupEnv("S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"); ok && cfg.Storage.S3.Enable {
		cfg.Storage.S3.AccessKeyID = v
	}
	if v, ok := lookupEnv("S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"); ok && cfg.Storage.S3.Enable {
		cfg.Storage.S3.SecretAccessKey = v
	}
	return nil
}
