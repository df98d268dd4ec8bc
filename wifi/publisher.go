package wifi

import "time"

// publishLoop pushes the status word to the transport once per interval while
// a subscriber listens. Scheduled independently of the run loop.
//
// The read uses a try-acquire on the status lock: when an event handler holds
// it at the wrong moment, this cycle's push is skipped instead of stalling
// the loop. The pushed word is at most one interval stale either way.
func (m *Manager) publishLoop() {
	ticker := time.NewTicker(m.statusInterval)
	defer ticker.Stop()

	// notificationFlag tracks push success purely for one-time log
	// transitions.
	notificationFlag := false

	for {
		select {
		case <-ticker.C:
			if m.sink == nil || !m.sink.Subscribed() {
				if notificationFlag {
					m.log.Debugf("No status subscriber anymore, pausing notifications.")
					notificationFlag = false
				}
				continue
			}

			if !m.statusMtx.TryLock() {
				continue
			}
			word := m.status.word()
			m.statusMtx.Unlock()

			if err := m.sink.Notify(encodeStatusWord(word)); err != nil {
				if notificationFlag {
					m.log.Warnf("Could not notify status: %v", err)
					notificationFlag = false
				}
				continue
			}

			if !notificationFlag {
				m.log.Infof("Started status notifications.")
				notificationFlag = true
			}
		case <-m.done:
			return
		}
	}
}
