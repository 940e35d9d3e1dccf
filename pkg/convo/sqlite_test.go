package convo_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quiplabs/quip/pkg/chat"
	"github.com/quiplabs/quip/pkg/convo"
)

var _ = Describe("SQLiteStore", func() {
	var (
		store *convo.SQLiteStore
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = convo.NewSQLiteStore(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("NewSQLiteStore", func() {
		It("creates a store with a file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "quip.db")

			s, err := convo.NewSQLiteStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Create and Get", func() {
		It("round-trips an empty conversation", func() {
			_, err := store.Create(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			c, err := store.Get(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal("c1"))
			Expect(c.History).To(BeEmpty())
		})

		It("rejects a duplicate id", func() {
			_, err := store.Create(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Create(ctx, "c1")
			var dupErr convo.ErrDuplicateID
			Expect(err).To(BeAssignableToTypeOf(dupErr))
		})

		It("returns ErrNotFound for an absent id", func() {
			_, err := store.Get(ctx, "missing")

			var notFoundErr convo.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})
	})

	Describe("AppendExchange", func() {
		It("persists exchanges in order", func() {
			_, err := store.Create(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.AppendExchange(ctx, "c1", chat.Exchange{Question: "one", Response: "1"})
			Expect(err).NotTo(HaveOccurred())

			history, err := store.AppendExchange(ctx, "c1", chat.Exchange{Question: "two", Response: "2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Question).To(Equal("one"))
			Expect(history[1].Question).To(Equal("two"))
		})

		It("returns ErrNotFound for an absent id", func() {
			_, err := store.AppendExchange(ctx, "missing", chat.Exchange{})

			var notFoundErr convo.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})
	})

	Describe("IndexOf", func() {
		It("matches insertion order", func() {
			store.Create(ctx, "a")
			store.Create(ctx, "b")

			idx, err := store.IndexOf(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(0))

			idx, err = store.IndexOf(ctx, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(1))
		})
	})

	Describe("List", func() {
		It("returns all conversations with their histories", func() {
			store.Create(ctx, "a")
			store.Create(ctx, "b")
			store.AppendExchange(ctx, "b", chat.Exchange{Question: "q", Response: "r"})

			all, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].ID).To(Equal("a"))
			Expect(all[1].History).To(HaveLen(1))
		})
	})
})
