// Package config loads assistant settings from an optional YAML file and
// lets environment variables override individual fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every knob the assistant reads at startup.
type Config struct {
	AssistantName string `yaml:"assistant_name"`
	UserName      string `yaml:"user_name"`

	LLM struct {
		Backend   string `yaml:"backend"` // "ollama" or "gemini"
		Model     string `yaml:"model"`
		OllamaURL string `yaml:"ollama_url"`
		GeminiKey string `yaml:"gemini_key"`
		AutoStart bool   `yaml:"auto_start"` // start the local daemon if down
		AutoPull  bool   `yaml:"auto_pull"`  // pull the model if missing
	} `yaml:"llm"`

	Voice struct {
		Enabled bool   `yaml:"enabled"`
		Name    string `yaml:"name"`
		Pitch   string `yaml:"pitch"`
		Rate    string `yaml:"rate"`
	} `yaml:"voice"`

	InputLanguage string `yaml:"input_language"`
	DataDir       string `yaml:"data_dir"`
	DBPath        string `yaml:"db_path"`
	DropFile      string `yaml:"drop_file"`
	StatusFile    string `yaml:"status_file"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	var c Config
	c.AssistantName = "Aura"
	c.UserName = "User"
	c.LLM.Backend = "ollama"
	c.LLM.Model = "llama3.1:8b"
	c.LLM.OllamaURL = "http://localhost:11434"
	c.LLM.AutoStart = true
	c.Voice.Enabled = true
	c.Voice.Name = "en-US-AriaNeural"
	c.Voice.Pitch = "+5Hz"
	c.Voice.Rate = "+13%"
	c.InputLanguage = "en"
	c.DataDir = "data"
	c.DBPath = filepath.Join("data", "aura.sqlite")
	c.DropFile = filepath.Join("data", "query.txt")
	c.StatusFile = filepath.Join("data", "status.txt")
	return c
}

// Load reads path if it exists, then applies env overrides. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return c, err
		}
	}
	c.applyEnv()
	return c, c.validate()
}

func (c *Config) applyEnv() {
	c.AssistantName = getenv("AURA_NAME", c.AssistantName)
	c.UserName = getenv("AURA_USER", c.UserName)
	c.LLM.Backend = strings.ToLower(getenv("AURA_BACKEND", c.LLM.Backend))
	c.LLM.Model = getenv("AURA_MODEL", c.LLM.Model)
	c.LLM.OllamaURL = getenv("OLLAMA_URL", c.LLM.OllamaURL)
	c.LLM.GeminiKey = getenv("GEMINI_API_KEY", c.LLM.GeminiKey)
	c.Voice.Name = getenv("AURA_VOICE", c.Voice.Name)
	c.InputLanguage = getenv("AURA_LANG", c.InputLanguage)
	c.DataDir = getenv("AURA_DATA", c.DataDir)
	c.DBPath = getenv("AURA_DB", c.DBPath)
	c.DropFile = getenv("AURA_DROP_FILE", c.DropFile)
	c.StatusFile = getenv("AURA_STATUS_FILE", c.StatusFile)
}

func (c *Config) validate() error {
	switch c.LLM.Backend {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("unknown llm backend %q", c.LLM.Backend)
	}
	if c.LLM.Backend == "gemini" && c.LLM.GeminiKey == "" {
		return fmt.Errorf("gemini backend selected but no api key set")
	}
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
