package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hearth/pkg/logger"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func decodeLines(buf *bytes.Buffer) []map[string]any {
	GinkgoHelper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
		records = append(records, rec)
	}
	return records
}

var _ = Describe("New", func() {
	It("writes text records at info level by default", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Debug("heartbeat sent")
		l.Info("exchange done", "household_id", "h1")

		Expect(buf.String()).NotTo(ContainSubstring("heartbeat sent"))
		Expect(buf.String()).To(ContainSubstring("exchange done"))
		Expect(buf.String()).To(ContainSubstring("household_id=h1"))
	})

	It("lets debug records through in debug mode", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
		l.Debug("note added", "kind", "fact")

		Expect(buf.String()).To(ContainSubstring("note added"))
	})

	It("writes one JSON object per record", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.Warn("notes fetch failed", "household_id", "h1", "limit", 5)
		l.Info("keyword fallback used")

		records := decodeLines(&buf)
		Expect(records).To(HaveLen(2))
		Expect(records[0]).To(HaveKeyWithValue("msg", "notes fetch failed"))
		Expect(records[0]).To(HaveKeyWithValue("level", "WARN"))
		Expect(records[0]).To(HaveKeyWithValue("limit", BeNumerically("==", 5)))
		Expect(records[1]).To(HaveKeyWithValue("msg", "keyword fallback used"))
	})

	It("adds the caller location with WithSource", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true))
		l.Info("located")

		records := decodeLines(&buf)
		Expect(records[0]).To(HaveKey("source"))
	})

	It("prefers the pretty handler over JSON", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
		l.Info("using SQLite storage")

		Expect(buf.String()).To(ContainSubstring("using SQLite storage"))
		Expect(json.Valid(bytes.TrimSpace(buf.Bytes()))).To(BeFalse())
	})

	It("renders errors under the error key", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.Error("conversation write failed", logger.Err(errors.New("database is locked")))

		Expect(decodeLines(&buf)[0]).To(HaveKeyWithValue("error", "database is locked"))
	})
})

var _ = Describe("Multi", func() {
	var console, file bytes.Buffer

	BeforeEach(func() {
		console.Reset()
		file.Reset()
	})

	It("sends each record to the console and the JSON file", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(&console)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true)),
		)
		l.Info("API server listening", "addr", ":8081")

		Expect(console.String()).To(ContainSubstring("API server listening"))
		Expect(decodeLines(&file)[0]).To(HaveKeyWithValue("addr", ":8081"))
	})

	It("respects the level of each sink", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(&console)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true), logger.WithDebug(true)),
		)
		l.Debug("job enqueued", "job", "memory_extraction")

		Expect(console.String()).To(BeEmpty())
		Expect(decodeLines(&file)).To(HaveLen(1))
	})

	It("is disabled only when every sink is", func() {
		quiet := logger.Multi(logger.Nop(), logger.Nop())
		Expect(quiet.Enabled(context.Background(), slog.LevelError)).To(BeFalse())

		mixed := logger.Multi(logger.Nop(), logger.New(logger.WithWriter(&file)))
		Expect(mixed.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
	})

	It("keeps writing to healthy sinks when one fails", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(brokenWriter{})),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true)),
		)
		l.Info("still recorded")

		Expect(decodeLines(&file)[0]).To(HaveKeyWithValue("msg", "still recorded"))
	})

	It("carries With attributes and groups to every sink", func() {
		var other bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&file), logger.WithJSON(true)),
			logger.New(logger.WithWriter(&other), logger.WithJSON(true)),
		)
		l.With("component", "chat").WithGroup("request").Info("stream opened", "format", "sse")

		for _, buf := range []*bytes.Buffer{&file, &other} {
			rec := decodeLines(buf)[0]
			Expect(rec).To(HaveKeyWithValue("component", "chat"))
			Expect(rec).To(HaveKeyWithValue("request", HaveKeyWithValue("format", "sse")))
		}
	})
})

var _ = Describe("Nop", func() {
	It("discards everything", func() {
		l := logger.Nop()
		Expect(l.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		Expect(func() {
			l.With("key", "value").WithGroup("g").Error("ignored")
		}).NotTo(Panic())
	})
})
