package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/logger"
)

// recorder collects every snapshot a subscriber receives.
type recorder struct {
	snapshots [][]chat.Message
}

func (r *recorder) record(snap []chat.Message) {
	r.snapshots = append(r.snapshots, snap)
}

func (r *recorder) last() []chat.Message {
	return r.snapshots[len(r.snapshots)-1]
}

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore(logger.Nop())
	})

	Describe("Append", func() {
		It("keeps arrival order", func() {
			a := chat.NewMessage("User", "first", true)
			b := chat.NewMessage("AI Assistant", "second", false)
			store.Append(a)
			store.Append(b)

			snap := store.Snapshot()
			Expect(snap).To(HaveLen(2))
			Expect(snap[0].ID).To(Equal(a.ID))
			Expect(snap[1].ID).To(Equal(b.ID))
			Expect(store.Count()).To(Equal(2))
		})

		It("publishes a snapshot to every subscriber", func() {
			r1, r2 := &recorder{}, &recorder{}
			store.Subscribe(r1.record)
			store.Subscribe(r2.record)

			store.Append(chat.NewMessage("User", "hi", true))

			Expect(r1.snapshots).To(HaveLen(2))
			Expect(r2.snapshots).To(HaveLen(2))
			Expect(r1.last()).To(HaveLen(1))
			Expect(r2.last()).To(HaveLen(1))
		})
	})

	Describe("Subscribe", func() {
		It("delivers the current state immediately", func() {
			for range 3 {
				store.Append(chat.NewMessage("User", "msg", true))
			}

			r := &recorder{}
			store.Subscribe(r.record)

			Expect(r.snapshots).To(HaveLen(1))
			Expect(r.snapshots[0]).To(HaveLen(3))
		})

		It("delivers an empty, non-nil snapshot for an empty store", func() {
			r := &recorder{}
			store.Subscribe(r.record)
			Expect(r.snapshots[0]).NotTo(BeNil())
			Expect(r.snapshots[0]).To(BeEmpty())
		})

		It("hands out copies that later mutations do not change", func() {
			placeholder := chat.NewMessage("AI Assistant", "", false)
			store.Append(placeholder)

			r := &recorder{}
			store.Subscribe(r.record)
			early := r.snapshots[0]

			Expect(store.Update(placeholder.ID, "partial")).To(Succeed())
			store.Append(chat.NewMessage("User", "next", true))

			Expect(early).To(HaveLen(1))
			Expect(early[0].Text).To(BeEmpty())
			Expect(r.last()).To(HaveLen(2))
			Expect(r.last()[0].Text).To(Equal("partial"))
		})

		It("does not share snapshots between subscribers", func() {
			r1, r2 := &recorder{}, &recorder{}
			store.Subscribe(r1.record)
			store.Subscribe(r2.record)
			store.Append(chat.NewMessage("User", "original", true))

			r1.last()[0].Text = "tampered"
			Expect(r2.last()[0].Text).To(Equal("original"))
			Expect(store.Snapshot()[0].Text).To(Equal("original"))
		})

		It("stops delivering after unsubscribe", func() {
			r := &recorder{}
			unsubscribe := store.Subscribe(r.record)
			unsubscribe()

			store.Append(chat.NewMessage("User", "hi", true))
			Expect(r.snapshots).To(HaveLen(1))
		})

		It("makes unsubscribe idempotent without touching other subscribers", func() {
			r1, r2 := &recorder{}, &recorder{}
			unsubscribe := store.Subscribe(r1.record)
			store.Subscribe(r2.record)

			unsubscribe()
			unsubscribe()

			store.Append(chat.NewMessage("User", "hi", true))
			Expect(r1.snapshots).To(HaveLen(1))
			Expect(r2.snapshots).To(HaveLen(2))
		})

		It("allows reads from inside the callback", func() {
			var counts []int
			store.Subscribe(func(_ []chat.Message) {
				counts = append(counts, store.Count())
			})
			store.Append(chat.NewMessage("User", "hi", true))
			Expect(counts).To(Equal([]int{0, 1}))
		})
	})

	Describe("UpdateLast", func() {
		It("returns ErrNotFound on an empty store", func() {
			r := &recorder{}
			store.Subscribe(r.record)

			Expect(store.UpdateLast("text")).To(MatchError(chat.ErrNotFound))
			Expect(r.snapshots).To(HaveLen(1))
		})

		It("replaces the text of the last message and republishes", func() {
			store.Append(chat.NewMessage("User", "question", true))
			store.Append(chat.NewMessage("AI Assistant", "", false))

			r := &recorder{}
			store.Subscribe(r.record)
			Expect(store.UpdateLast("answer")).To(Succeed())

			Expect(r.snapshots).To(HaveLen(2))
			Expect(r.last()[1].Text).To(Equal("answer"))
			Expect(r.last()[0].Text).To(Equal("question"))
		})

		It("refuses to change a final message", func() {
			store.Append(chat.NewMessage("User", "question", true))
			Expect(store.UpdateLast("edited")).To(MatchError(chat.ErrFrozen))
			Expect(store.Snapshot()[0].Text).To(Equal("question"))
		})
	})

	Describe("Update", func() {
		It("targets a message by ID regardless of position", func() {
			reply := chat.NewMessage("AI Assistant", "", false)
			store.Append(reply)
			store.Append(chat.NewMessage("AI Assistant", "apology", false))

			Expect(store.Update(reply.ID, "partial")).To(Succeed())

			snap := store.Snapshot()
			Expect(snap[0].Text).To(Equal("partial"))
			Expect(snap[1].Text).To(Equal("apology"))
		})

		It("returns ErrNotFound for unknown IDs", func() {
			Expect(store.Update("missing", "x")).To(MatchError(chat.ErrNotFound))
		})

		It("returns ErrNotFound for messages removed by Clear", func() {
			reply := chat.NewMessage("AI Assistant", "", false)
			store.Append(reply)
			store.Clear()
			Expect(store.Update(reply.ID, "late")).To(MatchError(chat.ErrNotFound))
		})
	})

	Describe("Finalize", func() {
		It("freezes the message text", func() {
			reply := chat.NewMessage("AI Assistant", "", false)
			store.Append(reply)
			Expect(store.Update(reply.ID, "done")).To(Succeed())
			Expect(store.Finalize(reply.ID)).To(Succeed())

			Expect(store.Update(reply.ID, "more")).To(MatchError(chat.ErrFrozen))
			got, ok := store.Get(reply.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Text).To(Equal("done"))
			Expect(got.Final).To(BeTrue())
		})

		It("does not republish when already final", func() {
			msg := chat.NewMessage("User", "hi", true)
			store.Append(msg)

			r := &recorder{}
			store.Subscribe(r.record)
			Expect(store.Finalize(msg.ID)).To(Succeed())
			Expect(r.snapshots).To(HaveLen(1))
		})

		It("returns ErrNotFound for unknown IDs", func() {
			Expect(store.Finalize("missing")).To(MatchError(chat.ErrNotFound))
		})
	})

	Describe("Clear", func() {
		It("always leaves a count of zero", func() {
			store.Clear()
			Expect(store.Count()).To(Equal(0))

			for range 5 {
				store.Append(chat.NewMessage("User", "msg", true))
			}
			store.Clear()
			Expect(store.Count()).To(Equal(0))
		})

		It("publishes an empty snapshot", func() {
			store.Append(chat.NewMessage("User", "msg", true))
			r := &recorder{}
			store.Subscribe(r.record)

			store.Clear()
			Expect(r.last()).To(BeEmpty())
		})
	})

	Describe("NewMessage", func() {
		It("assigns unique IDs", func() {
			a := chat.NewMessage("User", "a", true)
			b := chat.NewMessage("User", "a", true)
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("marks own messages final and assistant messages open", func() {
			Expect(chat.NewMessage("User", "a", true).Final).To(BeTrue())
			Expect(chat.NewMessage("AI Assistant", "", false).Final).To(BeFalse())
		})
	})
})
