package statuscmder_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	statuscmder "github.com/papercomputeco/hearth/cmd/hearth/status"
	"github.com/papercomputeco/hearth/pkg/cliui"
)

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("rejects any arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("Status command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
		body   string
	)

	run := func(target string) error {
		root := &cobra.Command{Use: "hearth"}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.AddCommand(statuscmder.NewStatusCmd())
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs([]string{"status", "--api-target", target})
		return root.Execute()
	}

	newServer := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ping":
				_, _ = io.WriteString(w, `"pong"`)
			case "/v1/diagnostics":
				_, _ = io.WriteString(w, body)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "hearth-status-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
		body = `{"count":0,"aggregates":[]}`
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("reports a healthy server without errors", func() {
		srv := newServer()
		defer srv.Close()

		Expect(run(srv.URL)).To(Succeed())
		Expect(out.String()).To(ContainSubstring(cliui.SuccessMark + " Pinging server"))
		Expect(out.String()).To(ContainSubstring(cliui.SuccessMark + " Loading diagnostics"))
		Expect(out.String()).To(ContainSubstring("No errors recorded."))
	})

	It("lists recorded aggregates", func() {
		srv := newServer()
		defer srv.Close()
		body = `{"count":1,"aggregates":[{"fingerprint":"openai_key_missing","level":"critical","occurrences":3,"last_message":"no api key"}]}`

		Expect(run(srv.URL)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("openai_key_missing"))
		Expect(out.String()).To(ContainSubstring("x3"))
		Expect(out.String()).To(ContainSubstring("no api key"))
	})

	It("fails when the server is unreachable", func() {
		srv := newServer()
		srv.Close()

		Expect(run(srv.URL)).To(HaveOccurred())
		Expect(out.String()).To(ContainSubstring(cliui.FailMark + " Pinging server"))
		Expect(out.String()).To(ContainSubstring("unreachable"))
		Expect(out.String()).NotTo(ContainSubstring("Loading diagnostics"))
	})
})
