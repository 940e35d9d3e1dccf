package convo

import "sync"

// notifier fans appends out to subscribers. Sends never block: a
// subscriber that falls behind its buffer misses updates rather than
// stalling the writer.
type notifier struct {
	mu   sync.Mutex
	subs []chan Update
}

const subscriberBuffer = 16

func (n *notifier) subscribe() <-chan Update {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	n.subs = append(n.subs, ch)
	return ch
}

func (n *notifier) publish(u Update) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		close(ch)
	}
	n.subs = nil
}
