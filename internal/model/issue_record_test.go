package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/internal/model"
)

var _ = Describe("IssueRecord", func() {
	Describe("EmbeddingText", func() {
		It("joins summary and description", func() {
			r := model.IssueRecord{Summary: "Login crash", Description: "Crashes on submit"}

			Expect(r.EmbeddingText()).To(Equal("Login crash Crashes on submit"))
		})

		It("embeds the placeholder for a blank description", func() {
			Expect(model.IssueRecord{Summary: "Dark mode"}.EmbeddingText()).To(Equal("Dark mode No description available"))
			Expect(model.IssueRecord{Summary: "Dark mode", Description: "  \n"}.EmbeddingText()).To(Equal("Dark mode No description available"))
		})
	})
})
