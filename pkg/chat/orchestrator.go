package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/eventstream"
	"github.com/papercomputeco/hearth/pkg/eventstream/nop"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/prompt"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/worker"
)

const (
	category = "ai_chat_stream"

	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	publishJob     = "exchange_publish"
	publishTimeout = 15 * time.Second
)

// NoteRetriever finds notes relevant to a message. *memory.Retriever
// implements it.
type NoteRetriever interface {
	Retrieve(ctx context.Context, householdID, query string) []*storage.Note
}

// ExtractionJobs builds the background job that distills an exchange into
// notes. *memory.Extractor implements it.
type ExtractionJobs interface {
	Job(householdID, userMessage, assistantResponse string) worker.Job
}

// Request is one chat message from a household member.
type Request struct {
	Message     string `json:"message"`
	HouseholdID string `json:"household_id"`
	UserID      string `json:"user_id"`

	// HistoryLimit is the number of prior exchanges to include. Nil means
	// the orchestrator default.
	HistoryLimit *int `json:"history_limit,omitempty"`
}

// Config wires an Orchestrator. Turns and Notes are required. A nil
// Provider is allowed and answers every request with 503.
type Config struct {
	Provider  llm.Provider
	Notes     NoteRetriever
	Turns     storage.TurnStore
	History   *HistoryLoader
	Extractor ExtractionJobs

	// Pool runs extraction and event publishing. Without one they run
	// inline after the terminal event.
	Pool      *worker.Pool
	Publisher eventstream.Publisher

	Model        string
	Temperature  *float64
	MaxTokens    int
	HistoryLimit int

	// HeartbeatInterval <= 0 disables heartbeats.
	HeartbeatInterval time.Duration

	// Location is the household's zone for dates in the prompt. Defaults
	// to time.Local.
	Location *time.Location

	Diagnostics diagnostics.Sink
	Logger      *slog.Logger

	// Now is overridden in tests.
	Now func() time.Time
}

// Orchestrator runs chat exchanges. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	provider  llm.Provider
	notes     NoteRetriever
	turns     storage.TurnStore
	history   *HistoryLoader
	extractor ExtractionJobs
	pool      *worker.Pool
	publisher eventstream.Publisher

	model        string
	temperature  float64
	maxTokens    int
	historyLimit int
	heartbeat    time.Duration
	location     *time.Location

	diag   diagnostics.Sink
	logger *slog.Logger
	now    func() time.Time
}

// exchange carries one request through the pipeline.
type exchange struct {
	req       Request
	streaming bool
	started   time.Time
	notes     int
	history   int
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(c Config) (*Orchestrator, error) {
	if c.Turns == nil {
		return nil, errors.New("orchestrator requires a turn store")
	}
	if c.Notes == nil {
		return nil, errors.New("orchestrator requires a note retriever")
	}
	if c.Diagnostics == nil {
		c.Diagnostics = diagnostics.Nop()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.History == nil {
		c.History = NewHistoryLoader(c.Turns, c.Diagnostics, c.Logger)
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	temperature := DefaultTemperature
	if c.Temperature != nil {
		temperature = *c.Temperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Location == nil {
		c.Location = time.Local
	}

	return &Orchestrator{
		provider:     c.Provider,
		notes:        c.Notes,
		turns:        c.Turns,
		history:      c.History,
		extractor:    c.Extractor,
		pool:         c.Pool,
		publisher:    c.Publisher,
		model:        c.Model,
		temperature:  temperature,
		maxTokens:    c.MaxTokens,
		historyLimit: c.HistoryLimit,
		heartbeat:    c.HeartbeatInterval,
		location:     c.Location,
		diag:         c.Diagnostics,
		logger:       c.Logger,
		now:          c.Now,
	}, nil
}

// Validate rejects a request that cannot start: a *RequestError with 400
// for missing fields or 503 when no provider is configured. Each rejection
// is recorded as a diagnostic.
func (o *Orchestrator) Validate(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.HouseholdID) == "" {
		return o.reject(ctx, http.StatusBadRequest, diagnostics.MissingParameters,
			diagnostics.LevelWarning, ErrMissingParameters)
	}
	if req.HistoryLimit != nil && *req.HistoryLimit < 0 {
		return o.reject(ctx, http.StatusBadRequest, diagnostics.MissingParameters,
			diagnostics.LevelWarning, errors.New("history_limit must not be negative"))
	}
	if o.provider == nil {
		return o.reject(ctx, http.StatusServiceUnavailable, diagnostics.ProviderUnavailable,
			diagnostics.LevelCritical, llm.ErrProviderUnavailable)
	}
	return nil
}

func (o *Orchestrator) reject(ctx context.Context, status int, fingerprint string, level diagnostics.Level, err error) error {
	o.diag.Record(ctx, diagnostics.FromError(fingerprint, level, category, diagnostics.ScopeEdgeFunction, err))
	return &RequestError{
		Status:      status,
		Fingerprint: fingerprint,
		Message:     err.Error(),
		Err:         err,
	}
}

// Stream runs one exchange, writing events to em. It returns a
// *RequestError, without emitting anything, when Validate fails; every
// later failure is reported in-stream and Stream returns nil.
//
// Event order is connected, content per delta, then exactly one of done
// or error. Heartbeats may appear between connected and the terminal
// event. If em starts failing the client is treated as gone: the provider
// call is cancelled and nothing is persisted.
func (o *Orchestrator) Stream(ctx context.Context, req Request, em Emitter) error {
	if err := o.Validate(ctx, req); err != nil {
		return err
	}
	ex := &exchange{req: req, streaming: true, started: o.now()}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if err := em.Emit(connectedEvent()); err != nil {
		o.clientDisconnected(ctx, ex, err)
		return nil
	}

	hb := startHeartbeat(em, o.heartbeat, func(err error) {
		cancel(fmt.Errorf("%w: %w", errClientGone, err))
	})
	defer hb.stop()

	messages := o.prepare(ctx, ex)

	var full strings.Builder
	_, err := o.provider.Stream(ctx, o.completionRequest(messages), func(delta string) error {
		if delta == "" {
			return nil
		}
		full.WriteString(delta)
		if err := em.Emit(contentEvent(delta)); err != nil {
			gone := fmt.Errorf("%w: %w", errClientGone, err)
			cancel(gone)
			return gone
		}
		return nil
	})

	if ctx.Err() != nil || errors.Is(err, errClientGone) {
		cause := context.Cause(ctx)
		if cause == nil {
			cause = err
		}
		o.clientDisconnected(ctx, ex, cause)
		return nil
	}

	if err != nil {
		o.logger.Error("completion stream failed",
			"household_id", req.HouseholdID,
			"provider", o.provider.Name(),
			logger.Err(err),
		)
		o.diag.Record(ctx, diagnostics.FromError(
			diagnostics.StreamingError,
			diagnostics.LevelError,
			category,
			diagnostics.ScopeEdgeFunction,
			err,
		))
		hb.stop()
		o.emitTerminal(em, errorEvent())
		return nil
	}

	reply := full.String()

	// The stream finished, so a disconnect from here on must not undo
	// the exchange.
	persistCtx := context.WithoutCancel(ctx)
	user, assistant, err := o.persist(persistCtx, req, reply)
	if err != nil {
		hb.stop()
		o.emitTerminal(em, errorEvent())
		return nil
	}

	hb.stop()
	o.emitTerminal(em, doneEvent(reply))

	o.finish(persistCtx, ex, user, assistant)
	return nil
}

// Chat runs one exchange without streaming and returns the full reply. It
// returns a *RequestError when Validate fails and ErrExchangeFailed when
// the provider or the conversation store failed.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (string, error) {
	if err := o.Validate(ctx, req); err != nil {
		return "", err
	}
	ex := &exchange{req: req, started: o.now()}

	messages := o.prepare(ctx, ex)

	resp, err := o.provider.Complete(ctx, o.completionRequest(messages))
	if err != nil {
		o.logger.Error("completion failed", "household_id", req.HouseholdID, logger.Err(err))
		o.diag.Record(ctx, diagnostics.FromError(
			diagnostics.StreamingError,
			diagnostics.LevelError,
			category,
			diagnostics.ScopeEdgeFunction,
			err,
		))
		return "", ErrExchangeFailed
	}

	persistCtx := context.WithoutCancel(ctx)
	user, assistant, err := o.persist(persistCtx, req, resp.Content)
	if err != nil {
		return "", ErrExchangeFailed
	}

	o.finish(persistCtx, ex, user, assistant)
	return resp.Content, nil
}

// prepare gathers notes and history and builds the model input. Neither
// step can fail the exchange.
func (o *Orchestrator) prepare(ctx context.Context, ex *exchange) []llm.Message {
	notes := o.notes.Retrieve(ctx, ex.req.HouseholdID, ex.req.Message)

	limit := o.historyLimit
	if ex.req.HistoryLimit != nil {
		limit = *ex.req.HistoryLimit
	}
	history := o.history.Load(ctx, ex.req.HouseholdID, limit)

	ex.notes = len(notes)
	ex.history = len(history)

	o.logger.Debug("prepared chat exchange",
		"household_id", ex.req.HouseholdID,
		"notes", len(notes),
		"history", len(history),
	)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.NewMessage(llm.RoleSystem, prompt.Assemble(notes, o.now().In(o.location))))
	messages = append(messages, history...)
	messages = append(messages, llm.NewMessage(llm.RoleUser, ex.req.Message))
	return messages
}

func (o *Orchestrator) completionRequest(messages []llm.Message) *llm.CompletionRequest {
	return &llm.CompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: llm.Float(o.temperature),
		MaxTokens:   o.maxTokens,
	}
}

// persist writes the user turn then the assistant turn. The assistant turn
// is stamped one microsecond after the user turn so ordering by created_at
// holds at the store's precision.
func (o *Orchestrator) persist(ctx context.Context, req Request, reply string) (*storage.Turn, *storage.Turn, error) {
	userAt := o.now().UTC().Truncate(time.Microsecond)

	user := &storage.Turn{
		HouseholdID: req.HouseholdID,
		Role:        llm.RoleUser,
		Content:     req.Message,
		CreatedAt:   userAt,
	}
	if err := o.turns.AppendTurn(ctx, user); err != nil {
		return nil, nil, o.storageFailed(ctx, req, llm.RoleUser, err)
	}

	assistant := &storage.Turn{
		HouseholdID: req.HouseholdID,
		Role:        llm.RoleAssistant,
		Content:     reply,
		CreatedAt:   userAt.Add(time.Microsecond),
	}
	if err := o.turns.AppendTurn(ctx, assistant); err != nil {
		return nil, nil, o.storageFailed(ctx, req, llm.RoleAssistant, err)
	}

	return user, assistant, nil
}

func (o *Orchestrator) storageFailed(ctx context.Context, req Request, role string, err error) error {
	err = fmt.Errorf("storing %s turn: %w", role, err)
	o.logger.Error("failed to store conversation", "household_id", req.HouseholdID, logger.Err(err))
	o.diag.Record(ctx, diagnostics.FromError(
		diagnostics.ConversationStorageError,
		diagnostics.LevelError,
		category,
		diagnostics.ScopeDatabase,
		err,
	))
	return err
}

func (o *Orchestrator) emitTerminal(em Emitter, ev Event) {
	if err := em.Emit(ev); err != nil {
		o.logger.Debug("terminal event not delivered", "type", ev.Type, logger.Err(err))
	}
}

func (o *Orchestrator) clientDisconnected(ctx context.Context, ex *exchange, cause error) {
	o.logger.Info("client disconnected mid-stream, exchange dropped",
		"household_id", ex.req.HouseholdID,
		"elapsed", o.now().Sub(ex.started),
	)
	o.diag.Record(context.WithoutCancel(ctx), diagnostics.Record{
		Fingerprint: diagnostics.ClientDisconnected,
		Level:       diagnostics.LevelInfo,
		Category:    category,
		Scope:       diagnostics.ScopeClient,
		Message:     cause.Error(),
	})
}

// finish publishes the exchange event and schedules memory extraction.
// Both run on the pool when there is one, otherwise inline with their
// errors only logged.
func (o *Orchestrator) finish(ctx context.Context, ex *exchange, user, assistant *storage.Turn) {
	completed := o.now()
	event := eventstream.NewExchangePersistedEvent(ex.req.HouseholdID, ex.req.UserID)
	event.RequestMeta = eventstream.ExchangeMeta{
		Provider:     o.provider.Name(),
		Model:        o.model,
		StartedAt:    ex.started.UTC(),
		CompletedAt:  completed.UTC(),
		DurationMs:   completed.Sub(ex.started).Milliseconds(),
		Streaming:    ex.streaming,
		NotesUsed:    ex.notes,
		HistoryTurns: ex.history,
	}
	event.UserTurn = eventstream.TurnRef{ID: user.ID, CreatedAt: user.CreatedAt, Chars: len(user.Content)}
	event.AssistantTurn = eventstream.TurnRef{ID: assistant.ID, CreatedAt: assistant.CreatedAt, Chars: len(assistant.Content)}

	o.schedule(ctx, worker.Job{
		Name:        publishJob,
		HouseholdID: ex.req.HouseholdID,
		Run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			if err := o.publisher.PublishExchange(ctx, event); err != nil {
				o.diag.Record(ctx, diagnostics.FromError(
					diagnostics.EventPublishError,
					diagnostics.LevelWarning,
					category,
					diagnostics.ScopeIntegration,
					err,
				))
				return err
			}
			return nil
		},
	})

	if o.extractor != nil {
		o.schedule(ctx, o.extractor.Job(ex.req.HouseholdID, user.Content, assistant.Content))
	}
}

func (o *Orchestrator) schedule(ctx context.Context, job worker.Job) {
	if o.pool != nil {
		o.pool.Enqueue(job)
		return
	}
	if err := job.Run(ctx); err != nil {
		o.logger.Warn("background job failed", "job", job.Name, logger.Err(err))
	}
}
