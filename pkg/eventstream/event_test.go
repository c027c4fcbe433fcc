package eventstream_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/eventstream"
)

var _ = Describe("ExchangePersistedEvent", func() {
	It("fills the envelope", func() {
		ev := eventstream.NewExchangePersistedEvent("h1", "u1")
		Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(ev.EventType).To(Equal("hearth.exchange.persisted"))
		Expect(strings.HasPrefix(ev.EventID, "evt_")).To(BeTrue())
		Expect(ev.EmittedAt.Location().String()).To(Equal("UTC"))
	})

	It("marshals with the expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewExchangePersistedEvent("h1", ""))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("household_id"))
		Expect(got).To(HaveKey("request_meta"))
		Expect(got).To(HaveKey("user_turn"))
		Expect(got).To(HaveKey("assistant_turn"))
		Expect(got).NotTo(HaveKey("user_id"))
	})
})
