package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent hearth configuration stored as config.toml
// in the .hearth/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	LLM         LLMConfig         `toml:"llm"`
	Chat        ChatConfig        `toml:"chat"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Worker      WorkerConfig      `toml:"worker"`
}

// StorageConfig selects the household store. PostgresDSN wins over
// SQLitePath when both are set.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// hearth API server (e.g. hearth chat).
type ClientConfig struct {
	APITarget                string `toml:"api_target,omitempty"`
	InactivityTimeoutSeconds uint   `toml:"inactivity_timeout_seconds,omitempty"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider        string  `toml:"provider,omitempty"`
	BaseURL         string  `toml:"base_url,omitempty"`
	APIKey          string  `toml:"api_key,omitempty"`
	Model           string  `toml:"model,omitempty"`
	ExtractionModel string  `toml:"extraction_model,omitempty"`
	Temperature     float64 `toml:"temperature,omitempty"`
	MaxTokens       uint    `toml:"max_tokens,omitempty"`
}

// ChatConfig tunes the chat pipeline.
type ChatConfig struct {
	HistoryLimit     uint `toml:"history_limit,omitempty"`
	NoteLimit        uint `toml:"note_limit,omitempty"`
	HeartbeatSeconds uint `toml:"heartbeat_seconds,omitempty"`

	// Timezone is an IANA zone name used for dates in the prompt. Empty
	// means the server's local zone.
	Timezone string `toml:"timezone,omitempty"`
}

// Location resolves Timezone.
func (c ChatConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid chat.timezone: %w", err)
	}
	return loc, nil
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EventStreamConfig configures where exchange events are published.
// Brokers is a comma separated host:port list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// WorkerConfig sizes the background worker pool.
type WorkerConfig struct {
	NumWorkers uint `toml:"num_workers,omitempty"`
	QueueSize  uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func secretKey(field func(c *Config) *string) configKeyInfo {
	info := stringKey(field)
	info.secret = true
	return info
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func timezoneKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.LoadLocation(v); err != nil {
				return fmt.Errorf("invalid value for chat.timezone: %w", err)
			}
			*field(c) = v
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": secretKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.inactivity_timeout_seconds": uintKey("client.inactivity_timeout_seconds",
		func(c *Config) *uint { return &c.Client.InactivityTimeoutSeconds }),

	"llm.provider":         stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.base_url":         stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.api_key":          secretKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.model":            stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.extraction_model": stringKey(func(c *Config) *string { return &c.LLM.ExtractionModel }),
	"llm.temperature":      floatKey("llm.temperature", func(c *Config) *float64 { return &c.LLM.Temperature }),
	"llm.max_tokens":       uintKey("llm.max_tokens", func(c *Config) *uint { return &c.LLM.MaxTokens }),

	"chat.history_limit":     uintKey("chat.history_limit", func(c *Config) *uint { return &c.Chat.HistoryLimit }),
	"chat.note_limit":        uintKey("chat.note_limit", func(c *Config) *uint { return &c.Chat.NoteLimit }),
	"chat.heartbeat_seconds": uintKey("chat.heartbeat_seconds", func(c *Config) *uint { return &c.Chat.HeartbeatSeconds }),
	"chat.timezone":          timezoneKey(func(c *Config) *string { return &c.Chat.Timezone }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"worker.num_workers": uintKey("worker.num_workers", func(c *Config) *uint { return &c.Worker.NumWorkers }),
	"worker.queue_size":  uintKey("worker.queue_size", func(c *Config) *uint { return &c.Worker.QueueSize }),
}

// orderedKeys lists keys in the TOML section layout order.
var orderedKeys = []string{
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"api.listen",
	"client.api_target",
	"client.inactivity_timeout_seconds",
	"llm.provider",
	"llm.base_url",
	"llm.api_key",
	"llm.model",
	"llm.extraction_model",
	"llm.temperature",
	"llm.max_tokens",
	"chat.history_limit",
	"chat.note_limit",
	"chat.heartbeat_seconds",
	"chat.timezone",
	"vector_store.provider",
	"vector_store.target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"worker.num_workers",
	"worker.queue_size",
}
