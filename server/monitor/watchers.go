package monitor

import "github.com/arguscam/argus/pkg/gen"

// SYNC-WATCHER-CHANNEL-SIZE
const WatcherChannelSize = 100

// AddWatcher registers to receive every published overlay snapshot.
func (m *Monitor) AddWatcher() chan *RenderState {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *RenderState, WatcherChannelSize)
	m.watchers = append(m.watchers, ch)
	return ch
}

// RemoveWatcher unregisters a watcher channel.
func (m *Monitor) RemoveWatcher(ch chan *RenderState) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = gen.DeleteFromSliceUnordered(m.watchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveWatcher failed to find channel")
}

func (m *Monitor) sendToWatchers(state *RenderState) {
	m.watchersLock.RLock()
	// If a watcher stalls, we drop its frames rather than stalling the
	// results goroutine: one slow websocket must not hold back tracking.
	for _, ch := range m.watchers {
		// SYNC-WATCHER-CHANNEL-SIZE
		if len(ch) >= cap(ch)*9/10 {
			// This should never happen. But as a safeguard against monitor stalls, we choose to drop frames.
			m.Log.Warnf("Monitor watcher is falling behind. I am going to drop frames.")
		} else {
			ch <- state
		}
	}
	m.watchersLock.RUnlock()
}
