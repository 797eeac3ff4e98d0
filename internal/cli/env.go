package cli

import "os"

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// orEnv keeps a value preset by the caller and falls back to the environment.
func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return envStr(key, "")
}
