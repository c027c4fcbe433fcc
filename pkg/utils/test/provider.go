package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/hearth/pkg/llm"
)

// ErrScriptedStream is the default error a FakeProvider stream fails with.
var ErrScriptedStream = errors.New("scripted stream failure")

// FakeProvider is a scripted llm.Provider.
type FakeProvider struct {
	mu sync.Mutex

	// Deltas are streamed in order by Stream.
	Deltas []string

	// StreamErr, when set, fails Stream after FailAfter deltas.
	StreamErr error
	FailAfter int

	// DeltaDelay pauses before each delta, honouring cancellation.
	DeltaDelay time.Duration

	// CompleteContent is returned by Complete unless CompleteErr is set.
	CompleteContent string
	CompleteErr     error

	// Requests records every request in call order.
	Requests []*llm.CompletionRequest
}

// NewFakeProvider streams deltas and completes with "{}".
func NewFakeProvider(deltas ...string) *FakeProvider {
	return &FakeProvider{
		Deltas:          deltas,
		CompleteContent: `{"facts":[]}`,
	}
}

func (f *FakeProvider) Name() string {
	return "fake"
}

func (f *FakeProvider) record(req *llm.CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
}

// RequestsSnapshot returns a copy of the recorded requests.
func (f *FakeProvider) RequestsSnapshot() []*llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.CompletionRequest(nil), f.Requests...)
}

func (f *FakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.CompleteErr != nil {
		return nil, f.CompleteErr
	}
	if len(f.Deltas) > 0 && !req.JSONObject {
		return &llm.CompletionResponse{Model: req.Model, Content: strings.Join(f.Deltas, "")}, nil
	}
	return &llm.CompletionResponse{Model: req.Model, Content: f.CompleteContent}, nil
}

func (f *FakeProvider) Stream(ctx context.Context, req *llm.CompletionRequest, onDelta llm.DeltaFunc) (*llm.CompletionResponse, error) {
	f.record(req)

	var full strings.Builder
	for i, d := range f.Deltas {
		if f.StreamErr != nil && i == f.FailAfter {
			return nil, f.StreamErr
		}
		if f.DeltaDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.DeltaDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		full.WriteString(d)
		if err := onDelta(d); err != nil {
			return nil, err
		}
	}

	if f.StreamErr != nil && f.FailAfter >= len(f.Deltas) {
		return nil, f.StreamErr
	}

	return &llm.CompletionResponse{Model: req.Model, Content: full.String(), StopReason: "stop"}, nil
}

var _ llm.Provider = (*FakeProvider)(nil)
