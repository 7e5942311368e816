package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/common/logger"
)

var _ = Describe("LogFields", func() {
	It("merges newer values over older ones", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			RunID:     logger.Ptr(int64(1)),
			PageID:    logger.Ptr("123"),
			Component: "ticketsmith.service.decomposition",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			EpicKey: logger.Ptr("SUN-1"),
			PageID:  logger.Ptr("456"),
		})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.RunID).To(Equal(int64(1)))
		Expect(*fields.PageID).To(Equal("456"))
		Expect(*fields.EpicKey).To(Equal("SUN-1"))
		Expect(fields.Component).To(Equal("ticketsmith.service.decomposition"))
		Expect(fields.SessionID).To(BeNil())
	})

	It("returns empty fields for a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = Describe("TraceHandler", func() {
	It("adds context fields to every record", func() {
		var buf bytes.Buffer
		log := slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			SessionID:  logger.Ptr(int64(42)),
			ProjectKey: logger.Ptr("SUN"),
		})
		log.InfoContext(ctx, "session ready")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("session ready"))
		Expect(record["session_id"]).To(BeNumerically("==", 42))
		Expect(record["project_key"]).To(Equal("SUN"))
		Expect(record).NotTo(HaveKey("trace_id"))
	})
})

var _ = DescribeTable("Truncate",
	func(input string, maxLen int, expected string) {
		Expect(logger.Truncate(input, maxLen)).To(Equal(expected))
	},
	Entry("short string unchanged", "abc", 5, "abc"),
	Entry("exact length unchanged", "abcde", 5, "abcde"),
	Entry("long string truncated", "abcdefgh", 3, "abc..."),
)
