package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileResult reports what LoadEnvFile did.
type EnvFileResult struct {
	Path   string
	Loaded bool
	Keys   int
	Err    error
}

// LoadEnvFile finds the nearest .env walking up from the working directory
// (or CSVCHAT_ENV_PATH) and exports its keys. Variables already set in the
// environment are left alone.
func LoadEnvFile() EnvFileResult {
	if override := strings.TrimSpace(os.Getenv("CSVCHAT_ENV_PATH")); override != "" {
		return LoadEnvFilePath(override)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return EnvFileResult{Err: err}
	}
	path := findUpwards(cwd, ".env")
	if path == "" {
		return EnvFileResult{}
	}
	return LoadEnvFilePath(path)
}

// LoadEnvFilePath exports the keys in the dotenv file at path that are not
// already set.
func LoadEnvFilePath(path string) EnvFileResult {
	res := EnvFileResult{Path: path}
	values, err := godotenv.Read(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Loaded = true

	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			res.Err = err
			return res
		}
		res.Keys++
	}
	return res
}

func findUpwards(start, filename string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
