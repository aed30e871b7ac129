package batchcache_test

import (
	"errors"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/aws/s3/mocks"
	"github.com/relloyd/totes/batchcache"
	"github.com/relloyd/totes/logger"
)

var _ = Describe("Cache", func() {
	var (
		log   logger.Logger
		store *s3.MemoryClient
		cache *batchcache.Cache
	)

	BeforeEach(func() {
		log = logger.NewLogger("totes", "error", true)
		store = s3.NewMemoryClient()
		cache = batchcache.NewCache(log, store)
	})

	It("creates an empty cache.txt when none exists", func() {
		ids, err := cache.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(ids.Len()).To(Equal(0))
		exists, _ := store.Exists("cache.txt")
		Expect(exists).To(BeTrue())
	})

	It("reads newline separated ids and ignores blank lines", func() {
		Expect(store.Put("cache.txt", []byte("2023-01-02T00:00:00.000000\n\n2023-01-01T00:00:00.000000\n"))).To(Succeed())
		ids, err := cache.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(ids.Sorted()).To(Equal([]string{"2023-01-01T00:00:00.000000", "2023-01-02T00:00:00.000000"}))
	})

	It("overwrites cache.txt on Save", func() {
		Expect(cache.Save(batchcache.NewSet("2023-01-02T00:00:00.000000", "2023-01-01T00:00:00.000000"))).To(Succeed())
		data, _ := store.Get("cache.txt")
		Expect(string(data)).To(Equal("2023-01-01T00:00:00.000000\n2023-01-02T00:00:00.000000"))
	})

	It("keeps entries written by a concurrent loader", func() {
		Expect(cache.MarkProcessed("2023-01-01T00:00:00.000000")).To(Succeed())
		// Another loader read the cache before the first one saved and now overwrites it.
		other := batchcache.NewCache(log, store)
		Expect(store.Put("_cache/2023-01-02T00:00:00.000000", nil)).To(Succeed())
		Expect(other.Save(batchcache.NewSet("2023-01-02T00:00:00.000000"))).To(Succeed())
		ids, err := cache.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(ids.Contains("2023-01-01T00:00:00.000000")).To(BeTrue())
		Expect(ids.Contains("2023-01-02T00:00:00.000000")).To(BeTrue())
	})

	It("returns pending batches in chronological order", func() {
		Expect(cache.MarkProcessed("2023-01-02T00:00:00.000000")).To(Succeed())
		pending, err := cache.Pending([]string{
			"2023-01-03T00:00:00.000000",
			"2023-01-02T00:00:00.000000",
			"2023-01-01T00:00:00.000000",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]string{"2023-01-01T00:00:00.000000", "2023-01-03T00:00:00.000000"}))
	})

	Context("when the store fails", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("returns the read error", func() {
			m := mocks.NewMockBasicClient(ctrl)
			m.EXPECT().Get("cache.txt").Return(nil, errors.New("access denied"))
			_, err := batchcache.NewCache(log, m).Load()
			Expect(err).To(MatchError(ContainSubstring("access denied")))
		})

		It("does not save the cache when the marker cannot be written", func() {
			m := mocks.NewMockBasicClient(ctrl)
			m.EXPECT().Put("_cache/2023-01-01T00:00:00.000000", gomock.Any()).Return(errors.New("access denied"))
			err := batchcache.NewCache(log, m).MarkProcessed("2023-01-01T00:00:00.000000")
			Expect(err).To(HaveOccurred())
		})
	})
})
