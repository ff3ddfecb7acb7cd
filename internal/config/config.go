package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	LLM struct {
		Provider      string `yaml:"provider"`
		Model         string `yaml:"model"`
		OllamaHost    string `yaml:"ollama_host"`
		OpenAIAPIKey  string `yaml:"openai_api_key"`
		OpenAIBaseURL string `yaml:"openai_base_url"`
	} `yaml:"llm"`
	Client struct {
		APIBase          string `yaml:"api_base"`
		Topic            string `yaml:"topic"`
		Source           string `yaml:"source"`
		Model            string `yaml:"model"`
		QuestionLimit    int    `yaml:"question_limit"`
		FeedbackDuration string `yaml:"feedback_duration"`
	} `yaml:"client"`
}

// Load reads YAML config from path. A missing file is not an error; defaults
// and environment fallbacks apply either way.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if cfg.LLM.OpenAIAPIKey == "" {
		cfg.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Client.APIBase == "" {
		cfg.Client.APIBase = os.Getenv("QUIZ_API_BASE")
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
