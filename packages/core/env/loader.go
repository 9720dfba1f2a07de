package env

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

type Environment struct {
	Name      string
	Variables map[string]any
	// Files lists the .env files that were loaded.
	Files []string
}

// LoadEnvironment assembles the variables for a run. An explicit envFile
// must exist; otherwise .env and .env.<name> next to the suite are loaded
// when present. Values from .env files are exported to the process
// environment without overriding variables that are already set, so
// {{$NAME}} sees them. Config environments are applied last.
func LoadEnvironment(dir, envName string, configEnvs map[string]map[string]any, envFile string) (*Environment, error) {
	env := &Environment{
		Name:      envName,
		Variables: make(map[string]any),
	}

	if envFile != "" {
		if _, err := LoadAndExportDotEnv(envFile); err != nil {
			return nil, err
		}
		env.Files = append(env.Files, envFile)
	} else {
		candidates := []string{filepath.Join(dir, ".env")}
		if envName != "" {
			candidates = append(candidates, filepath.Join(dir, ".env."+envName))
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if _, err := LoadAndExportDotEnv(path); err != nil {
				return nil, err
			}
			env.Files = append(env.Files, path)
		}
	}

	if vars, ok := configEnvs[envName]; ok {
		for k, v := range vars {
			env.Variables[k] = v
		}
	}

	return env, nil
}

func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}
