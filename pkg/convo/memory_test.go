package convo_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quiplabs/quip/pkg/chat"
	"github.com/quiplabs/quip/pkg/convo"
)

var _ = Describe("MemoryStore", func() {
	var (
		store *convo.MemoryStore
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = convo.NewMemoryStore()
	})

	AfterEach(func() {
		store.Close()
	})

	Describe("Create", func() {
		It("creates a conversation with the given id", func() {
			c, err := store.Create(ctx, "c1")

			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal("c1"))
			Expect(c.History).To(BeEmpty())
		})

		It("generates an id when none is given", func() {
			c, err := store.Create(ctx, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).NotTo(BeEmpty())
		})

		It("rejects a duplicate id", func() {
			_, err := store.Create(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Create(ctx, "c1")
			Expect(err).To(HaveOccurred())

			var dupErr convo.ErrDuplicateID
			Expect(err).To(BeAssignableToTypeOf(dupErr))
		})
	})

	Describe("IndexOf", func() {
		It("returns positions in insertion order", func() {
			store.Create(ctx, "a")
			store.Create(ctx, "b")
			store.Create(ctx, "c")

			idx, err := store.IndexOf(ctx, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(1))
		})

		It("is idempotent absent mutation", func() {
			store.Create(ctx, "a")
			store.Create(ctx, "b")

			first, err := store.IndexOf(ctx, "b")
			Expect(err).NotTo(HaveOccurred())

			second, err := store.IndexOf(ctx, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("returns ErrNotFound for an absent id", func() {
			idx, err := store.IndexOf(ctx, "missing")

			Expect(idx).To(Equal(-1))
			var notFoundErr convo.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})
	})

	Describe("AppendExchange", func() {
		BeforeEach(func() {
			_, err := store.Create(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("appends exactly one exchange", func() {
			history, err := store.AppendExchange(ctx, "c1", chat.Exchange{
				Question: "2+2?",
				Response: "4, obviously",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})

		It("round-trips the exchange unchanged", func() {
			ex := chat.Exchange{Question: "2+2?", Response: "4, obviously"}
			_, err := store.AppendExchange(ctx, "c1", ex)
			Expect(err).NotTo(HaveOccurred())

			idx, err := store.IndexOf(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			all, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all[idx].History).To(Equal([]chat.Exchange{ex}))
		})

		It("preserves append order", func() {
			store.AppendExchange(ctx, "c1", chat.Exchange{Question: "one"})
			store.AppendExchange(ctx, "c1", chat.Exchange{Question: "two"})

			c, err := store.Get(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.History[0].Question).To(Equal("one"))
			Expect(c.History[1].Question).To(Equal("two"))
		})

		It("returns ErrNotFound for an absent id", func() {
			_, err := store.AppendExchange(ctx, "missing", chat.Exchange{})

			var notFoundErr convo.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})

		It("notifies subscribers", func() {
			updates := store.Subscribe()

			_, err := store.AppendExchange(ctx, "c1", chat.Exchange{Question: "q"})
			Expect(err).NotTo(HaveOccurred())

			var u convo.Update
			Eventually(updates).Should(Receive(&u))
			Expect(u.ConversationID).To(Equal("c1"))
			Expect(u.HistoryLen).To(Equal(1))
		})
	})

	Describe("Get", func() {
		It("does not expose internal history to mutation", func() {
			store.Create(ctx, "c1")
			store.AppendExchange(ctx, "c1", chat.Exchange{Question: "q", Response: "r"})

			c, _ := store.Get(ctx, "c1")
			c.History[0].Response = "tampered"

			again, _ := store.Get(ctx, "c1")
			Expect(again.History[0].Response).To(Equal("r"))
		})
	})
})
