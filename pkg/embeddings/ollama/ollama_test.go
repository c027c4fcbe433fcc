package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/embeddings"
	"github.com/papercomputeco/hearth/pkg/embeddings/ollama"
	"github.com/papercomputeco/hearth/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server *httptest.Server
		status int
		got    map[string]string
	)

	BeforeEach(func() {
		status = http.StatusOK
		got = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(status)
			if status == http.StatusOK {
				_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
				return
			}
			_, _ = w.Write([]byte("model not found"))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("defaults the model", func() {
		Expect(ollama.NewEmbedder(ollama.EmbedderConfig{}).Model()).To(Equal(ollama.DefaultEmbeddingModel))
	})

	It("returns the first embedding", func() {
		e := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL + "/", Model: "all-minilm"})
		v, err := e.Embed(context.Background(), "soccer on tuesday")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.1, 0.2, 0.3}))
		Expect(got).To(HaveKeyWithValue("model", "all-minilm"))
		Expect(got).To(HaveKeyWithValue("input", "soccer on tuesday"))
	})

	It("wraps upstream failures in ErrEmbedding", func() {
		status = http.StatusNotFound
		e := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("model not found"))
	})

	It("refuses blank text without calling the server", func() {
		e := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "   ")
		Expect(errors.Is(err, embeddings.ErrEmptyText)).To(BeTrue())
		Expect(got).To(BeNil())
	})
})
