package observability

import "context"

// MultiObserver delivers each event to several observers in order.
type MultiObserver []Observer

// NewMultiObserver drops nil entries and returns the rest as one Observer.
func NewMultiObserver(observers ...Observer) MultiObserver {
	out := make(MultiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			out = append(out, obs)
		}
	}
	return out
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
