package prompt_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/prompt"
	"github.com/papercomputeco/hearth/pkg/storage"
)

var _ = Describe("Assemble", func() {
	day := time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)

	It("uses the empty-notes text and the ISO date", func() {
		out := prompt.Assemble(nil, day)
		Expect(out).To(ContainSubstring("No relevant notes found."))
		Expect(out).To(ContainSubstring("Current date: 2025-01-01"))
		Expect(out).NotTo(ContainSubstring("{{"))
	})

	It("is byte-identical across calls", func() {
		Expect(prompt.Assemble([]*storage.Note{}, day)).To(Equal(prompt.Assemble([]*storage.Note{}, day)))
	})

	It("lists notes with their noted-on date", func() {
		notes := []*storage.Note{
			{Content: "Soccer is on Tuesdays", CreatedAt: time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)},
			{Content: "Sam is allergic to peanuts", CreatedAt: time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
		}

		out := prompt.Assemble(notes, day)
		Expect(out).To(ContainSubstring("- Soccer is on Tuesdays [Noted on: 9/3/2024]\n- Sam is allergic to peanuts [Noted on: 12/25/2024]"))
		Expect(out).NotTo(ContainSubstring(prompt.NoNotes))
	})

	It("dates notes in the zone of the current date", func() {
		newYork, err := time.LoadLocation("America/New_York")
		Expect(err).NotTo(HaveOccurred())

		// 02:30 UTC on the 4th is still the evening of the 3rd in New York.
		notes := []*storage.Note{{Content: "Pick up dry cleaning", CreatedAt: time.Date(2024, 9, 4, 2, 30, 0, 0, time.UTC)}}

		local := prompt.Assemble(notes, time.Date(2024, 9, 4, 9, 0, 0, 0, newYork))
		Expect(local).To(ContainSubstring("[Noted on: 9/3/2024]"))
		Expect(local).To(ContainSubstring("Current date: 2024-09-04"))

		Expect(prompt.Assemble(notes, time.Date(2024, 9, 4, 9, 0, 0, 0, time.UTC))).To(ContainSubstring("[Noted on: 9/4/2024]"))
	})

	It("starts with the assistant persona", func() {
		Expect(strings.HasPrefix(prompt.Assemble(nil, day), "You are a helpful family assistant")).To(BeTrue())
	})

	It("does not re-expand placeholders found inside note content", func() {
		notes := []*storage.Note{{Content: "literal {{currentDate}}", CreatedAt: day}}
		Expect(prompt.Assemble(notes, day)).To(ContainSubstring("- literal {{currentDate}} [Noted on: 1/1/2025]"))
	})
})
