package library

import "fmt"

// Channel delivers a notification to a single patron.
type Channel interface {
	Notify(patron *Patron, message string)
}

// OverdueLister is the part of the Catalog the Broadcaster reads.
type OverdueLister interface {
	ListOverdue() []*Item
}

// Broadcaster fans overdue reminders out to every registered channel.
type Broadcaster struct {
	channels []Channel
}

func NewBroadcaster(channels ...Channel) *Broadcaster {
	b := &Broadcaster{}
	for _, ch := range channels {
		b.AddChannel(ch)
	}
	return b
}

func (b *Broadcaster) AddChannel(ch Channel) {
	if ch != nil {
		b.channels = append(b.channels, ch)
	}
}

// RemoveChannel drops the first registration of ch, if any.
func (b *Broadcaster) RemoveChannel(ch Channel) {
	for i, c := range b.channels {
		if c == ch {
			b.channels = append(b.channels[:i], b.channels[i+1:]...)
			return
		}
	}
}

// Channels returns the registered channels in registration order.
func (b *Broadcaster) Channels() []Channel {
	return append([]Channel(nil), b.channels...)
}

// OverdueMessage is the reminder text for a patron with n overdue items.
func OverdueMessage(n int) string {
	return fmt.Sprintf("You have %d overdue item(s).", n)
}

// SendOverdueReminders notifies every patron holding at least one overdue item
// and returns how many patrons were notified.
func (b *Broadcaster) SendOverdueReminders(catalog OverdueLister, patrons []*Patron) int {
	counts := make(map[string]int)
	for _, it := range catalog.ListOverdue() {
		counts[it.BorrowerID]++
	}

	notified := 0
	for _, p := range patrons {
		if p == nil {
			continue
		}
		n, ok := counts[p.ID]
		if !ok {
			continue
		}
		msg := OverdueMessage(n)
		for _, ch := range b.channels {
			deliver(ch, p, msg)
		}
		notified++
	}
	return notified
}

// deliver isolates a misbehaving channel so the remaining channels still run.
func deliver(ch Channel, p *Patron, msg string) {
	defer func() { _ = recover() }()
	ch.Notify(p, msg)
}
