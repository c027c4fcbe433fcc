package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/vector"
	"github.com/papercomputeco/hearth/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger.Nop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Add, Query and Delete", func() {
		var (
			driver *sqlitevec.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Add(ctx, []vector.Document{
				{ID: "n1", HouseholdID: "h1", Embedding: []float32{1, 0, 0, 0}},
				{ID: "n2", HouseholdID: "h1", Embedding: []float32{0, 1, 0, 0}},
				{ID: "n3", HouseholdID: "h2", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("does nothing for empty input", func() {
			Expect(driver.Add(ctx, nil)).To(Succeed())
			Expect(driver.Delete(ctx, nil)).To(Succeed())
		})

		It("returns the nearest documents of the household only", func() {
			results, err := driver.Query(ctx, "h1", []float32{0.9, 0.1, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("n1"))
			Expect(results[1].ID).To(Equal("n2"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
			for _, r := range results {
				Expect(r.HouseholdID).To(Equal("h1"))
			}
		})

		It("replaces an existing document's embedding", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "n1", HouseholdID: "h1", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())

			results, err := driver.Query(ctx, "h1", []float32{0, 0, 0, 1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("n1"))
		})

		It("removes deleted documents from results", func() {
			Expect(driver.Delete(ctx, []string{"n1"})).To(Succeed())

			results, err := driver.Query(ctx, "h1", []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("n2"))
		})
	})
})
