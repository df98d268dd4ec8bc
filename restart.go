package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// supervisorRestarter implements the reset directive by exiting non-zero and
// leaving the actual restart to the process supervisor (systemd Restart=).
type supervisorRestarter struct{}

func (r *supervisorRestarter) Restart() error {
	log.Warn("Restarting on reset directive.")

	// Give the transport a moment to acknowledge the write before dying.
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.Exit(1)
	}()

	return nil
}
