package sse_test

import (
	"errors"
	"io"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/sse"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

var _ = Describe("Reader", func() {
	collect := func(r *sse.Reader) []*sse.Event {
		var out []*sse.Event
		for {
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			if ev == nil {
				return out
			}
			out = append(out, ev)
		}
	}

	It("parses consecutive data events", func() {
		r := sse.NewReader(strings.NewReader("data: {\"type\":\"connected\"}\n\ndata: {\"type\":\"done\"}\n\n"))
		events := collect(r)
		Expect(events).To(HaveLen(2))
		Expect(events[0].Data).To(Equal(`{"type":"connected"}`))
		Expect(events[1].Data).To(Equal(`{"type":"done"}`))
	})

	It("parses event, id and retry fields", func() {
		r := sse.NewReader(strings.NewReader("event: chat\nid: 7\nretry: 3000\ndata: hi\n\n"))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal("chat"))
		Expect(ev.ID).To(Equal("7"))
		Expect(ev.Retry).To(Equal(3 * time.Second))
		Expect(ev.Data).To(Equal("hi"))
	})

	It("joins multiple data lines", func() {
		events := collect(sse.NewReader(strings.NewReader("data: one\ndata: two\n\n")))
		Expect(events[0].Data).To(Equal("one\ntwo"))
	})

	It("handles CRLF line endings", func() {
		events := collect(sse.NewReader(strings.NewReader("data: hi\r\n\r\n")))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("hi"))
	})

	It("skips comments and stray blank lines", func() {
		events := collect(sse.NewReader(strings.NewReader("\n\n: keep-alive\n\ndata: x\n\n")))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("x"))
	})

	It("returns a trailing event without a closing blank line", func() {
		events := collect(sse.NewReader(strings.NewReader("data: last")))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("last"))
	})

	It("keeps data without a space after the colon", func() {
		events := collect(sse.NewReader(strings.NewReader("data:tight\n\n")))
		Expect(events[0].Data).To(Equal("tight"))
	})

	It("calls OnFrame for every line", func() {
		r := sse.NewReader(strings.NewReader(": ping\n\ndata: x\n\n"))
		frames := 0
		r.OnFrame = func() { frames++ }
		collect(r)
		Expect(frames).To(Equal(4))
	})

	It("returns read errors", func() {
		_, err := sse.NewReader(failingReader{}).Next()
		Expect(err).To(MatchError("connection reset"))
	})

	It("reports exhaustion as nil, nil", func() {
		ev, err := sse.NewReader(io.LimitReader(strings.NewReader(""), 0)).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(BeNil())
	})
})
