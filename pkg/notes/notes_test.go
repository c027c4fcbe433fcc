package notes_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/notes"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/hearth/pkg/utils/test"
	"github.com/papercomputeco/hearth/pkg/vector"
	"github.com/papercomputeco/hearth/pkg/worker"
)

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		embedder *testutils.MockEmbedder
		vectors  *testutils.MockVectorDriver
		sink     *testutils.RecordingSink
		svc      *notes.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		embedder = testutils.NewMockEmbedder()
		vectors = testutils.NewMockVectorDriver()
		sink = testutils.NewRecordingSink()

		var err error
		svc, err = notes.NewService(notes.Config{
			Store:       store,
			Embedder:    embedder,
			Vectors:     vectors,
			Diagnostics: sink,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewService", func() {
		It("requires a store", func() {
			_, err := notes.NewService(notes.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("requires embedder and vector store together", func() {
			_, err := notes.NewService(notes.Config{Store: store, Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})

		It("disables semantic search without them", func() {
			plain, err := notes.NewService(notes.Config{Store: store})
			Expect(err).NotTo(HaveOccurred())
			Expect(plain.SemanticEnabled()).To(BeFalse())

			_, err = plain.SemanticSearch(ctx, "h1", "anything", 5)
			Expect(errors.Is(err, notes.ErrSemanticUnavailable)).To(BeTrue())
		})
	})

	Describe("Add", func() {
		It("stores the note, defaulting the kind, and vectorizes it", func() {
			note, err := svc.Add(ctx, &storage.Note{HouseholdID: "h1", Content: "  Trash day is Thursday "})
			Expect(err).NotTo(HaveOccurred())
			Expect(note.ID).NotTo(BeEmpty())
			Expect(note.Kind).To(Equal(storage.KindFact))
			Expect(note.Content).To(Equal("Trash day is Thursday"))

			Expect(store.Notes("h1")).To(HaveLen(1))
			docs := vectors.Documents()
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(note.ID))
			Expect(docs[0].HouseholdID).To(Equal("h1"))
		})

		It("normalises unknown kinds", func() {
			note, err := svc.Add(ctx, &storage.Note{HouseholdID: "h1", Content: "x", Kind: "rumour"})
			Expect(err).NotTo(HaveOccurred())
			Expect(note.Kind).To(Equal(storage.KindNote))
		})

		It("rejects notes without household or content", func() {
			_, err := svc.Add(ctx, &storage.Note{Content: "x"})
			Expect(errors.Is(err, notes.ErrInvalidNote)).To(BeTrue())

			_, err = svc.Add(ctx, &storage.Note{HouseholdID: "h1", Content: "   "})
			Expect(errors.Is(err, notes.ErrInvalidNote)).To(BeTrue())
		})

		It("keeps the note when vectorization fails", func() {
			embedder.FailAll = true
			_, err := svc.Add(ctx, &storage.Note{HouseholdID: "h1", Content: "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Notes("h1")).To(HaveLen(1))
			Expect(sink.Count(diagnostics.NoteVectorizeError)).To(Equal(1))
		})

		It("vectorizes on the worker pool when one is configured", func() {
			pool, err := worker.NewPool(worker.Config{NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())

			pooled, err := notes.NewService(notes.Config{Store: store, Embedder: embedder, Vectors: vectors, Pool: pool})
			Expect(err).NotTo(HaveOccurred())

			_, err = pooled.Add(ctx, &storage.Note{HouseholdID: "h1", Content: "pooled"})
			Expect(err).NotTo(HaveOccurred())

			pool.Close()
			Expect(vectors.Documents()).To(HaveLen(1))
		})
	})

	Describe("Vectorize", func() {
		It("reports unknown notes", func() {
			err := svc.Vectorize(ctx, "missing")
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("SemanticSearch", func() {
		It("returns matched notes in similarity order", func() {
			a := &storage.Note{HouseholdID: "h1", Content: "a"}
			b := &storage.Note{HouseholdID: "h1", Content: "b"}
			Expect(store.InsertNote(ctx, a)).To(Succeed())
			Expect(store.InsertNote(ctx, b)).To(Succeed())

			vectors.Results = []vector.QueryResult{
				{Document: vector.Document{ID: b.ID, HouseholdID: "h1"}, Score: 0.9},
				{Document: vector.Document{ID: a.ID, HouseholdID: "h1"}, Score: 0.5},
			}

			got, err := svc.SemanticSearch(ctx, "h1", "letters", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].ID).To(Equal(b.ID))
			Expect(got[1].ID).To(Equal(a.ID))
		})

		It("never returns another household's notes", func() {
			other := &storage.Note{HouseholdID: "h2", Content: "secret"}
			Expect(store.InsertNote(ctx, other)).To(Succeed())
			vectors.Results = []vector.QueryResult{{Document: vector.Document{ID: other.ID, HouseholdID: "h2"}}}

			got, err := svc.SemanticSearch(ctx, "h1", "secret", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})

		It("propagates vector store errors", func() {
			vectors.QueryErr = errors.New("down")
			_, err := svc.SemanticSearch(ctx, "h1", "x", 5)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("KeywordSearch", func() {
		It("ORs the query words", func() {
			Expect(store.InsertNote(ctx, &storage.Note{HouseholdID: "h1", Content: "Piano lesson Monday"})).To(Succeed())
			Expect(store.InsertNote(ctx, &storage.Note{HouseholdID: "h1", Content: "Swim meet Saturday"})).To(Succeed())

			got, err := svc.KeywordSearch(ctx, "h1", "piano or swim?", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})
	})
})
