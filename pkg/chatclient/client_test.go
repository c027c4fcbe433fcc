package chatclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/chatclient"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/notify"
	testutils "github.com/papercomputeco/hearth/pkg/utils/test"
)

func writeSSE(w http.ResponseWriter, ev chat.Event) {
	b, _ := json.Marshal(ev)
	fmt.Fprintf(w, "data: %s\n\n", b)
	w.(http.Flusher).Flush()
}

func writeNDJSON(w http.ResponseWriter, ev chat.Event) {
	b, _ := json.Marshal(ev)
	fmt.Fprintf(w, "%s\n", b)
	w.(http.Flusher).Flush()
}

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		notifier *testutils.RecordingNotifier
		handler  http.HandlerFunc
		server   *httptest.Server
		reported chan diagnostics.Record
	)

	BeforeEach(func() {
		ctx = context.Background()
		notifier = testutils.NewRecordingNotifier()
		reported = make(chan diagnostics.Record, 4)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			if r.URL.Path == "/v1/diagnostics" {
				var rec diagnostics.Record
				_ = json.NewDecoder(r.Body).Decode(&rec)
				reported <- rec
				w.WriteHeader(http.StatusAccepted)
				return
			}
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(transport chatclient.Transport, timeout time.Duration) *chatclient.Client {
		c, err := chatclient.New(chatclient.Config{
			BaseURL:           server.URL,
			Transport:         transport,
			InactivityTimeout: timeout,
			Notifier:          notifier,
			ReportErrors:      true,
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	request := chat.Request{Message: "What's on today?", HouseholdID: "h1", UserID: "u1"}

	It("requires a base URL", func() {
		_, err := chatclient.New(chatclient.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("streams deltas over SSE", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodGet))
			Expect(r.URL.Query().Get("message")).To(Equal("What's on today?"))
			Expect(r.URL.Query().Get("household_id")).To(Equal("h1"))

			w.Header().Set("Content-Type", chat.ContentTypeSSE)
			writeSSE(w, chat.Event{Type: chat.EventConnected})
			writeSSE(w, chat.Event{Type: chat.EventContent, Content: "Soccer "})
			writeSSE(w, chat.Event{Type: chat.EventHeartbeat})
			writeSSE(w, chat.Event{Type: chat.EventContent, Content: "at 5."})
			writeSSE(w, chat.Event{Type: chat.EventDone, FullResponse: "Soccer at 5."})
		}

		var deltas []string
		s, err := newClient(chatclient.TransportSSE, time.Second).Stream(ctx, request, func(d string) {
			deltas = append(deltas, d)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas).To(Equal([]string{"Soccer ", "at 5."}))
		Expect(s.Status).To(Equal(chatclient.StatusDone))
		Expect(s.Response).To(Equal("Soccer at 5."))
		Expect(notifier.Notices()).To(BeEmpty())
	})

	It("streams deltas over NDJSON with a POST body", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Accept")).To(Equal(chat.ContentTypeNDJSON))

			var got chat.Request
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			Expect(got.HouseholdID).To(Equal("h1"))

			w.Header().Set("Content-Type", chat.ContentTypeNDJSON)
			writeNDJSON(w, chat.Event{Type: chat.EventConnected})
			writeNDJSON(w, chat.Event{Type: chat.EventContent, Content: "ok"})
			writeNDJSON(w, chat.Event{Type: chat.EventComplete})
		}

		s, err := newClient(chatclient.TransportNDJSON, time.Second).Stream(ctx, request, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Response).To(Equal("ok"))
	})

	It("surfaces a server error event and keeps partial text", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeSSE(w, chat.Event{Type: chat.EventConnected})
			writeSSE(w, chat.Event{Type: chat.EventContent, Content: "Partial"})
			writeSSE(w, chat.Event{Type: chat.EventError, Error: chat.ClientErrorMessage})
		}

		s, err := newClient(chatclient.TransportSSE, time.Second).Stream(ctx, request, nil)

		var serverErr *chatclient.ServerError
		Expect(errors.As(err, &serverErr)).To(BeTrue())
		Expect(serverErr.Message).To(Equal(chat.ClientErrorMessage))
		Expect(s.Status).To(Equal(chatclient.StatusErrored))
		Expect(s.Response).To(Equal("Partial"))

		Expect(notifier.Notices()).To(HaveLen(1))
		Expect(notifier.Notices()[0].Level).To(Equal(notify.LevelError))

		var rec diagnostics.Record
		Eventually(reported).Should(Receive(&rec))
		Expect(rec.Fingerprint).To(Equal(diagnostics.ChatStreamClientError))
		Expect(rec.Scope).To(Equal(diagnostics.ScopeClient))
	})

	It("decodes structured rejections", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"message and household_id are required"}`)
		}

		_, err := newClient(chatclient.TransportSSE, time.Second).Stream(ctx, request, nil)

		var serverErr *chatclient.ServerError
		Expect(errors.As(err, &serverErr)).To(BeTrue())
		Expect(serverErr.Status).To(Equal(http.StatusBadRequest))
		Expect(serverErr.Message).To(Equal("message and household_id are required"))
	})

	It("times out when frames stop arriving", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			writeSSE(w, chat.Event{Type: chat.EventConnected})
			writeSSE(w, chat.Event{Type: chat.EventContent, Content: "Thinking"})
			<-r.Context().Done()
		}

		s, err := newClient(chatclient.TransportSSE, 100*time.Millisecond).Stream(ctx, request, nil)
		Expect(err).To(MatchError(chatclient.ErrTimedOut))
		Expect(s.Status).To(Equal(chatclient.StatusTimedOut))
		Expect(s.Response).To(Equal("Thinking"))
		Expect(notifier.Notices()[0].Title).To(Equal("Connection timed out"))
	})

	It("keeps the connection alive on heartbeats", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeSSE(w, chat.Event{Type: chat.EventConnected})
			for range 6 {
				time.Sleep(40 * time.Millisecond)
				writeSSE(w, chat.Event{Type: chat.EventHeartbeat})
			}
			writeSSE(w, chat.Event{Type: chat.EventDone, FullResponse: "late"})
		}

		s, err := newClient(chatclient.TransportSSE, 150*time.Millisecond).Stream(ctx, request, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Response).To(Equal("late"))
	})

	It("reports a stream that closes without a terminal event", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeSSE(w, chat.Event{Type: chat.EventConnected})
		}

		s, err := newClient(chatclient.TransportSSE, time.Second).Stream(ctx, request, nil)
		Expect(err).To(MatchError(chatclient.ErrStreamClosed))
		Expect(s.Status).To(Equal(chatclient.StatusErrored))
	})

	It("retries with the same message", func() {
		var calls atomic.Int32
		var mu sync.Mutex
		var messages []string

		handler = func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			messages = append(messages, r.URL.Query().Get("message"))
			mu.Unlock()

			writeSSE(w, chat.Event{Type: chat.EventConnected})
			if calls.Add(1) == 1 {
				writeSSE(w, chat.Event{Type: chat.EventError, Error: chat.ClientErrorMessage})
				return
			}
			writeSSE(w, chat.Event{Type: chat.EventDone, FullResponse: "second time lucky"})
		}

		c := newClient(chatclient.TransportSSE, time.Second)
		first, err := c.Stream(ctx, request, nil)
		Expect(err).To(HaveOccurred())

		second, err := c.Retry(ctx, first, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Response).To(Equal("second time lucky"))

		mu.Lock()
		defer mu.Unlock()
		Expect(messages).To(Equal([]string{"What's on today?", "What's on today?"}))
	})
})

var _ = Describe("Client server queries", func() {
	var server *httptest.Server

	AfterEach(func() {
		server.Close()
	})

	newClient := func(h http.HandlerFunc) *chatclient.Client {
		server = httptest.NewServer(h)
		c, err := chatclient.New(chatclient.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	It("pings the server", func() {
		c := newClient(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ping" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, `"pong"`)
		})
		Expect(c.Ping(context.Background())).To(Succeed())
	})

	It("reports a failing ping", func() {
		c := newClient(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		err := c.Ping(context.Background())

		var serverErr *chatclient.ServerError
		Expect(errors.As(err, &serverErr)).To(BeTrue())
		Expect(serverErr.Status).To(Equal(http.StatusServiceUnavailable))
	})

	It("lists diagnostics with the requested limit", func() {
		var gotLimit string
		c := newClient(func(w http.ResponseWriter, r *http.Request) {
			gotLimit = r.URL.Query().Get("limit")
			_, _ = io.WriteString(w, `{"count":1,"aggregates":[{"fingerprint":"openai_key_missing","level":"critical","occurrences":2}]}`)
		})

		aggs, err := c.Diagnostics(context.Background(), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotLimit).To(Equal("10"))
		Expect(aggs).To(HaveLen(1))
		Expect(aggs[0].Fingerprint).To(Equal("openai_key_missing"))
		Expect(aggs[0].Occurrences).To(Equal(2))
	})
})
