package inmemory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		d   *inmemory.Driver
		ctx context.Context
	)

	BeforeEach(func() {
		d = inmemory.NewDriver()
		ctx = context.Background()
	})

	Describe("turns", func() {
		It("returns recent turns newest first and honours the limit", func() {
			base := time.Now()
			for i := range 5 {
				Expect(d.AppendTurn(ctx, &storage.Turn{
					HouseholdID: "h1",
					Role:        "user",
					Content:     string(rune('a' + i)),
					CreatedAt:   base.Add(time.Duration(i) * time.Second),
				})).To(Succeed())
			}

			turns, err := d.RecentTurns(ctx, "h1", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Content).To(Equal("e"))
			Expect(turns[1].Content).To(Equal("d"))

			Expect(d.Turns("h1")[0].Content).To(Equal("a"))
		})

		It("returns nothing for a zero limit", func() {
			Expect(d.AppendTurn(ctx, &storage.Turn{HouseholdID: "h1", Role: "user"})).To(Succeed())
			turns, err := d.RecentTurns(ctx, "h1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})

	Describe("notes", func() {
		It("keyword searches newest first", func() {
			Expect(d.InsertNote(ctx, &storage.Note{HouseholdID: "h1", Content: "Dentist on Friday"})).To(Succeed())
			Expect(d.InsertNote(ctx, &storage.Note{HouseholdID: "h1", Content: "Friday pizza night"})).To(Succeed())
			Expect(d.InsertNote(ctx, &storage.Note{HouseholdID: "h2", Content: "Friday elsewhere"})).To(Succeed())

			got, err := d.KeywordSearchNotes(ctx, "h1", []string{"friday"}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].Content).To(Equal("Friday pizza night"))
		})

		It("reports missing notes", func() {
			_, err := d.GetNote(ctx, "nope")
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("error aggregates", func() {
		It("increments occurrences on repeat fingerprints", func() {
			agg := &storage.ErrorAggregate{Fingerprint: "x", Level: "warning"}
			Expect(d.UpsertErrorAggregate(ctx, agg)).To(Succeed())
			Expect(d.UpsertErrorAggregate(ctx, agg)).To(Succeed())

			aggs, err := d.ListErrorAggregates(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(aggs).To(HaveLen(1))
			Expect(aggs[0].Occurrences).To(Equal(2))
		})
	})

	Describe("collections", func() {
		It("rejects unknown collections", func() {
			err := d.InsertItem(ctx, "accounts", &storage.Item{HouseholdID: "h1"})
			Expect(errors.Is(err, storage.ErrUnknownCollection)).To(BeTrue())
		})

		It("lists a household's items newest first", func() {
			Expect(d.InsertItem(ctx, storage.CollectionEvents, &storage.Item{HouseholdID: "h1", Title: "one"})).To(Succeed())
			Expect(d.InsertItem(ctx, storage.CollectionEvents, &storage.Item{HouseholdID: "h1", Title: "two"})).To(Succeed())

			items, err := d.ListItems(ctx, storage.CollectionEvents, "h1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].Title).To(Equal("two"))
		})
	})
})
