package chat_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/chat"
)

var _ = Describe("StreamEmitter", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("frames SSE events as data lines", func() {
		em := chat.NewStreamEmitter(buf, chat.FormatSSE)
		Expect(em.Emit(chat.Event{Type: chat.EventContent, Content: "Hi"})).To(Succeed())
		Expect(buf.String()).To(Equal(`data: {"type":"content","content":"Hi"}` + "\n\n"))
	})

	It("frames NDJSON events one per line", func() {
		em := chat.NewStreamEmitter(buf, chat.FormatNDJSON)
		Expect(em.Emit(chat.Event{Type: chat.EventConnected})).To(Succeed())
		Expect(em.Emit(chat.Event{Type: chat.EventDone, FullResponse: "ok"})).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(2))

		var ev chat.Event
		Expect(json.Unmarshal([]byte(lines[1]), &ev)).To(Succeed())
		Expect(ev).To(Equal(chat.Event{Type: chat.EventDone, FullResponse: "ok"}))
	})

	It("refuses events after a terminal one", func() {
		em := chat.NewStreamEmitter(buf, chat.FormatSSE)
		Expect(em.Emit(chat.Event{Type: chat.EventError, Error: chat.ClientErrorMessage})).To(Succeed())
		Expect(em.Emit(chat.Event{Type: chat.EventHeartbeat})).To(MatchError(chat.ErrEmitterClosed))
		Expect(strings.Count(buf.String(), "data: ")).To(Equal(1))
	})

	It("reports content types", func() {
		Expect(chat.FormatSSE.ContentType()).To(Equal("text/event-stream"))
		Expect(chat.FormatNDJSON.ContentType()).To(Equal("application/x-ndjson"))
	})
})

var _ = Describe("Event", func() {
	It("treats done, complete and error as terminal", func() {
		Expect(chat.Event{Type: chat.EventDone}.Terminal()).To(BeTrue())
		Expect(chat.Event{Type: chat.EventComplete}.Terminal()).To(BeTrue())
		Expect(chat.Event{Type: chat.EventError}.Terminal()).To(BeTrue())
		Expect(chat.Event{Type: chat.EventHeartbeat}.Terminal()).To(BeFalse())
	})
})
