package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/hearth/cmd/hearth/chat"
	"github.com/papercomputeco/hearth/pkg/chat"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("registers the client flags", func() {
		cmd := chatcmder.NewChatCmd()
		for _, name := range []string{"api-target", "inactivity-timeout", "household", "user", "ndjson", "markdown"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("api-target").DefValue).To(Equal("http://localhost:8081"))
	})
})

var _ = Describe("Chat command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer

		mu       sync.Mutex
		messages []string
		fail     bool
	)

	newServer := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/diagnostics" {
				w.WriteHeader(http.StatusAccepted)
				return
			}

			format := chat.FormatSSE
			msg := r.URL.Query().Get("message")
			if r.Method == http.MethodPost {
				format = chat.FormatNDJSON
				var body chat.Request
				_ = json.NewDecoder(r.Body).Decode(&body)
				msg = body.Message
			}

			mu.Lock()
			messages = append(messages, msg)
			failing := fail
			mu.Unlock()

			w.Header().Set("Content-Type", format.ContentType())
			em := chat.NewStreamEmitter(w, format)
			_ = em.Emit(chat.Event{Type: chat.EventConnected})
			if failing {
				_ = em.Emit(chat.Event{Type: chat.EventError, Error: chat.ClientErrorMessage})
				return
			}
			_ = em.Emit(chat.Event{Type: chat.EventContent, Content: "Hi "})
			_ = em.Emit(chat.Event{Type: chat.EventContent, Content: "there"})
			_ = em.Emit(chat.Event{Type: chat.EventDone, FullResponse: "Hi there"})
		}))
	}

	run := func(target string, input string, args ...string) error {
		root := &cobra.Command{Use: "hearth"}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.PersistentFlags().Bool("debug", false, "")
		root.AddCommand(chatcmder.NewChatCmd())

		root.SetOut(out)
		root.SetErr(out)
		root.SetIn(strings.NewReader(input))
		root.SetArgs(append([]string{"chat", "--api-target", target}, args...))
		return root.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "hearth-chat-test-*")
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
		messages = nil
		fail = false
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("requires a household", func() {
		srv := newServer()
		defer srv.Close()

		err := run(srv.URL, "/exit\n")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("household"))
	})

	It("prints the streamed reply", func() {
		srv := newServer()
		defer srv.Close()

		Expect(run(srv.URL, "hello\n/exit\n", "--household", "smiths")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Hi there"))
		Expect(messages).To(Equal([]string{"hello"}))
	})

	It("uses the NDJSON transport when asked", func() {
		srv := newServer()
		defer srv.Close()

		Expect(run(srv.URL, "hello\n", "--household", "smiths", "--ndjson")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Hi there"))
		Expect(messages).To(Equal([]string{"hello"}))
	})

	It("skips blank lines", func() {
		srv := newServer()
		defer srv.Close()

		Expect(run(srv.URL, "\n   \nhello\n", "--household", "smiths")).To(Succeed())
		Expect(messages).To(HaveLen(1))
	})

	It("resends the failed message on /retry", func() {
		srv := newServer()
		defer srv.Close()
		fail = true

		Expect(run(srv.URL, "hello\n/retry\n", "--household", "smiths")).To(Succeed())
		Expect(messages).To(Equal([]string{"hello", "hello"}))
		Expect(out.String()).To(ContainSubstring("/retry"))
	})

	It("has nothing to retry after a successful exchange", func() {
		srv := newServer()
		defer srv.Close()

		Expect(run(srv.URL, "hello\n/retry\n", "--household", "smiths")).To(Succeed())
		Expect(messages).To(HaveLen(1))
		Expect(out.String()).To(ContainSubstring("Nothing to retry."))
	})
})
