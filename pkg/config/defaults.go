package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	// Long enough to tolerate multi-second model latency between frames.
	defaultInactivityTimeoutSeconds = 90

	defaultLLMProvider     = "openai"
	defaultLLMModel        = "gpt-4"
	defaultExtractionModel = "gpt-3.5-turbo"
	defaultTemperature     = 0.7
	defaultMaxTokens       = 1000

	defaultHistoryLimit     = 5
	defaultNoteLimit        = 5
	defaultHeartbeatSeconds = 15

	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingModel      = "text-embedding-ada-002"
	defaultEmbeddingDimensions = 1536

	defaultEventStreamTopic = "hearth.exchanges"

	defaultNumWorkers = 3
	defaultQueueSize  = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget:                defaultClientAPITarget,
			InactivityTimeoutSeconds: defaultInactivityTimeoutSeconds,
		},
		LLM: LLMConfig{
			Provider:        defaultLLMProvider,
			Model:           defaultLLMModel,
			ExtractionModel: defaultExtractionModel,
			Temperature:     defaultTemperature,
			MaxTokens:       defaultMaxTokens,
		},
		Chat: ChatConfig{
			HistoryLimit:     defaultHistoryLimit,
			NoteLimit:        defaultNoteLimit,
			HeartbeatSeconds: defaultHeartbeatSeconds,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		EventStream: EventStreamConfig{
			Topic: defaultEventStreamTopic,
		},
		Worker: WorkerConfig{
			NumWorkers: defaultNumWorkers,
			QueueSize:  defaultQueueSize,
		},
	}
}
