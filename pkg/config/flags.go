package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// cannot drift between "hearth serve" and "hearth chat".
type Flag struct {
	// Name is the long flag name (e.g. "api-listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagAPIListen         = "api-listen"
	FlagSQLite            = "sqlite"
	FlagPostgres          = "postgres"
	FlagLLMProvider       = "llm-provider"
	FlagLLMBaseURL        = "llm-base-url"
	FlagModel             = "model"
	FlagExtractionModel   = "extraction-model"
	FlagHistoryLimit      = "history-limit"
	FlagHeartbeat         = "heartbeat-seconds"
	FlagVectorStoreProv   = "vector-store-provider"
	FlagVectorStoreTgt    = "vector-store-target"
	FlagEmbeddingProv     = "embedding-provider"
	FlagEmbeddingTgt      = "embedding-target"
	FlagEmbeddingModel    = "embedding-model"
	FlagEmbeddingDims     = "embedding-dimensions"
	FlagEventStreamProv   = "eventstream-provider"
	FlagKafkaBrokers      = "kafka-brokers"
	FlagKafkaTopic        = "kafka-topic"
	FlagWorkers           = "workers"
	FlagAPITarget         = "api-target"
	FlagInactivityTimeout = "inactivity-timeout"
)

// DefaultFlags is the registry shared by every hearth command.
var DefaultFlags = FlagSet{
	FlagAPIListen:         {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagSQLite:            {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: .hearth/hearth.db)"},
	FlagPostgres:          {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string (takes precedence over --sqlite)"},
	FlagLLMProvider:       {Name: "llm-provider", ViperKey: "llm.provider", Description: "Completion provider (openai, ollama)"},
	FlagLLMBaseURL:        {Name: "llm-base-url", ViperKey: "llm.base_url", Description: "Base URL of an OpenAI compatible API"},
	FlagModel:             {Name: "model", Shorthand: "m", ViperKey: "llm.model", Description: "Model used for streaming chat"},
	FlagExtractionModel:   {Name: "extraction-model", ViperKey: "llm.extraction_model", Description: "Model used for memory extraction"},
	FlagHistoryLimit:      {Name: "history-limit", ViperKey: "chat.history_limit", Description: "Number of prior exchanges sent to the model"},
	FlagHeartbeat:         {Name: "heartbeat-seconds", ViperKey: "chat.heartbeat_seconds", Description: "Seconds between stream heartbeats"},
	FlagVectorStoreProv:   {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlite, qdrant, none)"},
	FlagVectorStoreTgt:    {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (file path or host:port)"},
	FlagEmbeddingProv:     {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	FlagEmbeddingTgt:      {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:    {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:     {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagEventStreamProv:   {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Exchange event publisher (kafka, none)"},
	FlagKafkaBrokers:      {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:        {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for exchange events"},
	FlagWorkers:           {Name: "workers", ViperKey: "worker.num_workers", Description: "Background worker count"},
	FlagAPITarget:         {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Hearth API server URL"},
	FlagInactivityTimeout: {Name: "inactivity-timeout", ViperKey: "client.inactivity_timeout_seconds", Description: "Seconds without a stream frame before giving up"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
