package memory_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/memory"
	"github.com/papercomputeco/hearth/pkg/notes"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/hearth/pkg/utils/test"
)

var _ = Describe("Extractor", func() {
	var (
		ctx      context.Context
		mem      *inmemory.Driver
		store    *testutils.FailingDriver
		provider *testutils.FakeProvider
		sink     *testutils.RecordingSink
		ex       *memory.Extractor
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = inmemory.NewDriver()
		store = testutils.NewFailingDriver(mem)
		provider = testutils.NewFakeProvider()
		sink = testutils.NewRecordingSink()

		svc, err := notes.NewService(notes.Config{Store: store, Diagnostics: sink})
		Expect(err).NotTo(HaveOccurred())

		ex, err = memory.NewExtractor(memory.ExtractorConfig{
			Provider:    provider,
			Notes:       svc,
			Diagnostics: sink,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("asks the extraction model for a JSON object", func() {
		provider.CompleteContent = `{"facts": []}`

		_, err := ex.Extract(ctx, "h1", "Soccer is at 5", "Got it")
		Expect(err).NotTo(HaveOccurred())

		reqs := provider.RequestsSnapshot()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Model).To(Equal(memory.DefaultExtractionModel))
		Expect(reqs[0].JSONObject).To(BeTrue())
		Expect(reqs[0].Messages).To(HaveLen(2))
		Expect(reqs[0].Messages[0].Role).To(Equal(llm.RoleSystem))
		Expect(reqs[0].Messages[1].Content).To(Equal("User: Soccer is at 5\n\nAssistant: Got it"))
	})

	It("stores each fact with conversation provenance", func() {
		provider.CompleteContent = `{"facts": [
			{"content": "Soccer practice is at 5pm on Tuesdays", "kind": "fact"},
			{"content": "Sam prefers pasta", "kind": "preference"}
		]}`

		n, err := ex.Extract(ctx, "h1", "Soccer practice is at 5pm on Tuesdays", "Noted!")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		stored := mem.Notes("h1")
		Expect(stored).To(HaveLen(2))
		kinds := []storage.Kind{stored[0].Kind, stored[1].Kind}
		Expect(kinds).To(ConsistOf(storage.KindFact, storage.KindPreference))
		for _, note := range stored {
			Expect(note.Source).To(HaveKeyWithValue("derived_from", memory.SourceConversation))
		}
		Expect(sink.Records()).To(BeEmpty())
	})

	It("maps unknown kinds to note and skips empty content", func() {
		provider.CompleteContent = `{"facts": [{"content": "Grandma visits in May", "kind": "event"}, {"content": "  ", "kind": "fact"}]}`

		n, err := ex.Extract(ctx, "h1", "u", "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(mem.Notes("h1")[0].Kind).To(Equal(storage.KindNote))
	})

	It("treats a missing facts key as no facts", func() {
		provider.CompleteContent = `{"something": "else"}`

		n, err := ex.Extract(ctx, "h1", "u", "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(sink.Records()).To(BeEmpty())
	})

	It("reports malformed model output without storing anything", func() {
		provider.CompleteContent = "I could not find any facts."

		n, err := ex.Extract(ctx, "h1", "u", "a")
		Expect(err).To(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(mem.Notes("h1")).To(BeEmpty())

		Expect(sink.Fingerprints()).To(Equal([]string{diagnostics.MemoryExtractionError}))
		rec := sink.Records()[0]
		Expect(rec.Level).To(Equal(diagnostics.LevelWarning))
		Expect(rec.Category).To(Equal("memory_system"))
		Expect(rec.Scope).To(Equal(diagnostics.ScopeIntegration))
	})

	It("reports provider failures", func() {
		provider.CompleteErr = errors.New("rate limited")

		_, err := ex.Extract(ctx, "h1", "u", "a")
		Expect(err).To(HaveOccurred())
		Expect(sink.Count(diagnostics.MemoryExtractionError)).To(Equal(1))
	})

	It("stops at the first storage failure", func() {
		store.FailInsertNoteAfter = 1
		provider.CompleteContent = `{"facts": [{"content": "one", "kind": "fact"}, {"content": "two", "kind": "fact"}, {"content": "three", "kind": "fact"}]}`

		n, err := ex.Extract(ctx, "h1", "u", "a")
		Expect(err).To(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(mem.Notes("h1")).To(HaveLen(1))
		Expect(sink.Count(diagnostics.MemoryExtractionError)).To(Equal(1))
	})

	It("builds a pool job that runs the extraction", func() {
		provider.CompleteContent = `{"facts": [{"content": "Dog is named Biscuit", "kind": "fact"}]}`

		job := ex.Job("h1", "Our dog is Biscuit", "Cute name!")
		Expect(job.HouseholdID).To(Equal("h1"))
		Expect(job.Run(ctx)).To(Succeed())
		Expect(mem.Notes("h1")).To(HaveLen(1))
	})
})

var _ = Describe("ParseFacts", func() {
	It("strips markdown fences", func() {
		facts, err := memory.ParseFacts("```json\n{\"facts\": [{\"content\": \"x\", \"kind\": \"rule\"}]}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(facts).To(Equal([]memory.Fact{{Content: "x", Kind: "rule"}}))
	})

	It("returns nothing for empty output", func() {
		facts, err := memory.ParseFacts("  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(facts).To(BeEmpty())
	})

	It("rejects non-object output", func() {
		_, err := memory.ParseFacts(`["x"]`)
		Expect(err).To(HaveOccurred())
	})
})
