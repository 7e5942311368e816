package service_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/internal/retrieval"
	"basegraph.app/ticketsmith/internal/service"
)

var _ = Describe("SessionRegistry", func() {
	It("hands out distinct ids", func() {
		registry := service.NewSessionRegistry()

		a := registry.Add("ABC", retrieval.NewSession())
		b := registry.Add("ABC", retrieval.NewSession())

		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(registry.Len()).To(Equal(2))

		got, ok := registry.Get(a.ID)
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(a))
	})

	It("reports whether a delete removed anything", func() {
		registry := service.NewSessionRegistry()
		entry := registry.Add("ABC", retrieval.NewSession())

		Expect(registry.Delete(entry.ID)).To(BeTrue())
		Expect(registry.Delete(entry.ID)).To(BeFalse())
		_, ok := registry.Get(entry.ID)
		Expect(ok).To(BeFalse())
	})

	It("is safe for concurrent use", func() {
		registry := service.NewSessionRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				entry := registry.Add("ABC", retrieval.NewSession())
				_, ok := registry.Get(entry.ID)
				Expect(ok).To(BeTrue())
			}()
		}
		wg.Wait()

		Expect(registry.Len()).To(Equal(20))
	})
})
