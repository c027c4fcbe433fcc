package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/storage"
	testutils "github.com/papercomputeco/hearth/pkg/utils/test"
)

func streamURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/v1/chat/stream?" + q.Encode()
}

var _ = Describe("Chat endpoints", func() {
	var ts *testServer

	BeforeEach(func() {
		ts = newTestServer(serverOptions{})
	})

	Describe("GET /v1/chat/stream", func() {
		It("streams SSE events in order and persists both turns", func() {
			resp := ts.do(httptest.NewRequest(http.MethodGet, streamURL(map[string]string{
				"message":      "Hi",
				"household_id": "h1",
				"user_id":      "u1",
			}), nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix(chat.ContentTypeSSE))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))

			events := sseEvents(resp.Body)
			Expect(eventTypes(events)).To(Equal([]chat.EventType{
				chat.EventConnected,
				chat.EventContent,
				chat.EventContent,
				chat.EventContent,
				chat.EventDone,
			}))
			Expect(events[1].Content).To(Equal("Hello"))
			Expect(events[4].FullResponse).To(Equal("Hello world"))

			turns := ts.store.Turns("h1")
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(llm.RoleUser))
			Expect(turns[0].Content).To(Equal("Hi"))
			Expect(turns[1].Role).To(Equal(llm.RoleAssistant))
			Expect(turns[1].Content).To(Equal("Hello world"))
		})

		It("returns 400 without opening a stream when message is missing", func() {
			resp := ts.do(httptest.NewRequest(http.MethodGet, streamURL(map[string]string{
				"household_id": "h1",
			}), nil))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorMessage(resp)).To(Equal(chat.ErrMissingParameters.Error()))
			Expect(ts.sink.Fingerprints()).To(ConsistOf(diagnostics.MissingParameters))
			Expect(ts.provider.RequestsSnapshot()).To(BeEmpty())
		})

		It("returns 400 for a non-numeric history_limit", func() {
			resp := ts.do(httptest.NewRequest(http.MethodGet, streamURL(map[string]string{
				"message":       "Hi",
				"household_id":  "h1",
				"history_limit": "lots",
			}), nil))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 when no provider is configured", func() {
			ts = newTestServer(serverOptions{noProvider: true})

			resp := ts.do(httptest.NewRequest(http.MethodGet, streamURL(map[string]string{
				"message":      "Hi",
				"household_id": "h1",
			}), nil))
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(ts.sink.Fingerprints()).To(ConsistOf(diagnostics.ProviderUnavailable))
		})

		It("ends with a generic error event when the provider fails", func() {
			ts.provider.StreamErr = errors.New("upstream exploded")
			ts.provider.FailAfter = 1

			resp := ts.do(httptest.NewRequest(http.MethodGet, streamURL(map[string]string{
				"message":      "Hi",
				"household_id": "h1",
			}), nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			events := sseEvents(resp.Body)
			Expect(eventTypes(events)).To(Equal([]chat.EventType{
				chat.EventConnected,
				chat.EventContent,
				chat.EventError,
			}))
			Expect(events[2].Error).To(Equal(chat.ClientErrorMessage))
			Expect(ts.store.Turns("h1")).To(BeEmpty())
		})
	})

	Describe("POST /v1/chat/stream", func() {
		It("streams NDJSON lines", func() {
			req := jsonRequest(http.MethodPost, "/v1/chat/stream", chat.Request{
				Message:     "Hi",
				HouseholdID: "h1",
			})
			req.Header.Set("Accept", chat.ContentTypeNDJSON)

			resp := ts.do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix(chat.ContentTypeNDJSON))

			events := ndjsonEvents(resp.Body)
			Expect(events).To(HaveLen(5))
			Expect(events[0].Type).To(Equal(chat.EventConnected))
			Expect(events[4].Type).To(Equal(chat.EventDone))
		})

		It("streams SSE frames when the client only accepts event streams", func() {
			req := jsonRequest(http.MethodPost, "/v1/chat/stream", chat.Request{
				Message:     "Hi",
				HouseholdID: "h1",
			})
			req.Header.Set("Accept", chat.ContentTypeSSE)

			resp := ts.do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(eventTypes(sseEvents(resp.Body))).To(HaveLen(5))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", strings.NewReader("{not json"))
			req.Header.Set("Content-Type", "application/json")

			resp := ts.do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /v1/chat", func() {
		It("returns the full reply", func() {
			resp := ts.do(jsonRequest(http.MethodPost, "/v1/chat", chat.Request{
				Message:     "Hi",
				HouseholdID: "h1",
			}))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body chatResponse
			decodeJSON(resp, &body)
			Expect(body.Response).To(Equal("Hello world"))
			Expect(ts.store.Turns("h1")).To(HaveLen(2))
		})

		It("returns a generic 500 when the provider fails", func() {
			ts.provider.CompleteErr = errors.New("quota exceeded")

			resp := ts.do(jsonRequest(http.MethodPost, "/v1/chat", chat.Request{
				Message:     "Hi",
				HouseholdID: "h1",
			}))
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(errorMessage(resp)).To(Equal(chat.ClientErrorMessage))
		})

		It("returns a generic 500 when the assistant turn cannot be stored", func() {
			ts = newTestServer(serverOptions{wrap: func(d storage.Driver) storage.Driver {
				f := testutils.NewFailingDriver(d)
				f.FailAppendRole = llm.RoleAssistant
				return f
			}})

			resp := ts.do(jsonRequest(http.MethodPost, "/v1/chat", chat.Request{
				Message:     "Hi",
				HouseholdID: "h1",
			}))
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(ts.sink.Fingerprints()).To(ContainElement(diagnostics.ConversationStorageError))
		})
	})
})
