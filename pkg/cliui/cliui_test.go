package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("ends the line with the success mark", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Pinging server", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())

		out := buf.String()
		Expect(out).To(HaveSuffix("\n"))
		last := out[strings.LastIndex(out, "\r"):]
		Expect(last).To(HavePrefix("\r  " + cliui.SuccessMark + " Pinging server ("))
	})

	It("returns the error and shows the failure mark", func() {
		var buf bytes.Buffer
		boom := errors.New("connection refused")
		err := cliui.Step(&buf, "Pinging server", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark + " Pinging server"))
	})

	It("writes nothing after the final line", func() {
		var buf bytes.Buffer
		_ = cliui.Step(&buf, "Loading diagnostics", func() error {
			time.Sleep(200 * time.Millisecond)
			return nil
		})
		snapshot := buf.String()

		time.Sleep(200 * time.Millisecond)
		Expect(buf.String()).To(Equal(snapshot))
		Expect(strings.Count(snapshot, "\n")).To(Equal(1))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(42 * time.Millisecond)).To(Equal("42ms"))
	})

	It("uses tenths of a second above", func() {
		Expect(cliui.FormatDuration(3250 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Mask", func() {
	It("keeps the last four characters", func() {
		Expect(cliui.Mask("sk-abcdef1234")).To(Equal("****1234"))
	})

	It("hides short secrets entirely", func() {
		Expect(cliui.Mask("abc")).To(Equal("****"))
	})
})
