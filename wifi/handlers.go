package wifi

import (
	"encoding/json"
	"time"

	"github.com/UriShX/wifibled/codec"
	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/wifidb"
	"github.com/go-errors/errors"
)

const (
	// scanFreshness is how long a scan result serves the list characteristic
	// before a new scan is triggered.
	scanFreshness = 10 * time.Second

	// The list characteristic retries this often while no scan result exists
	// yet. Bounded so a BLE read cannot hang forever.
	scanListRetries    = 20
	scanListRetrySleep = 500 * time.Millisecond

	// maxListedNetworks caps the ssid list payload, it has to fit a single
	// characteristic read.
	maxListedNetworks = 10
)

// HandleConfigWrite processes one write to the configuration characteristic.
// Runs synchronously on the transport's delivery goroutine, so it only
// persists and signals; connecting happens on the run loop.
//
// A payload matching none of the known shapes is logged and discarded without
// touching any state.
func (m *Manager) HandleConfigWrite(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	msg, err := codec.DecodeMessage(payload, []byte(m.deviceName))
	if err != nil {
		m.log.Warnf("Received invalid configuration message: %v", err)
		return nil
	}

	switch {
	case msg.Credentials != nil:
		return m.applyCredentials(msg.Credentials)
	case msg.Erase:
		return m.eraseCredentials()
	case msg.Reset:
		return m.reset()
	}

	return nil
}

func (m *Manager) applyCredentials(received *codec.Credentials) error {
	m.log.Infof("Received credentials over BLE: primary %v, secondary %v", received.SsidPrim, received.SsidSec)

	creds := &wifidb.Credentials{
		SsidPrim: received.SsidPrim,
		PwPrim:   received.PwPrim,
		SsidSec:  received.SsidSec,
		PwSec:    received.PwSec,
		Valid:    true,
	}

	if err := m.db.SetCredentials(creds); err != nil {
		return errors.Errorf("could not persist credentials: %v", err)
	}

	m.setCredentials(creds)

	m.triggerConnect()

	return nil
}

func (m *Manager) eraseCredentials() error {
	m.log.Infof("Received erase directive, clearing credentials.")

	if err := m.db.Wipe(); err != nil {
		return errors.Errorf("could not wipe credentials: %v", err)
	}

	m.setCredentials(&wifidb.Credentials{})
	m.statusChanged.set(true)

	return nil
}

func (m *Manager) reset() error {
	m.log.Infof("Received reset directive, restarting device.")

	if err := m.net.Disconnect(); err != nil {
		m.log.Warnf("Could not disconnect before restart: %v", err)
	}

	if m.restarter == nil {
		return errors.Errorf("no restarter configured")
	}

	return m.restarter.Restart()
}

// triggerConnect nudges the run loop into an immediate connect cycle. Never
// blocks; a pending trigger is enough.
func (m *Manager) triggerConnect() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// HandleConfigRead serves the read-back of the stored credentials, obfuscated
// like the write direction.
func (m *Manager) HandleConfigRead() ([]byte, error) {
	m.credsMtx.Lock()
	creds := m.creds
	m.credsMtx.Unlock()

	payload, err := codec.EncodeCredentials(&codec.Credentials{
		SsidPrim: creds.SsidPrim,
		PwPrim:   creds.PwPrim,
		SsidSec:  creds.SsidSec,
		PwSec:    creds.PwSec,
	}, []byte(m.deviceName))
	if err != nil {
		return nil, errors.Errorf("could not encode credentials: %v", err)
	}

	return payload, nil
}

type scanList struct {
	SSID []string `json:"SSID"`
}

// HandleScanListRead serves the ssid list characteristic: up to ten non-open
// networks from a sufficiently fresh scan. While no scan result exists at all
// it retries with short sleeps, bounded by scanListRetries.
func (m *Manager) HandleScanListRead() ([]byte, error) {
	var wifis []*network.Wifi

	for attempt := 0; attempt < scanListRetries; attempt++ {
		result, err := m.scan(false)
		if err != nil {
			m.log.Warnf("Could not refresh scan list: %v", err)
		}

		if len(result) > 0 {
			wifis = result
			break
		}

		time.Sleep(scanListRetrySleep)
	}

	// Use literal instead of declaration so it serializes into empty json array
	list := &scanList{SSID: []string{}}

	for _, wifi := range wifis {
		if wifi.Encryption == network.EncryptionOpen {
			continue
		}

		list.SSID = append(list.SSID, wifi.Ssid)

		if len(list.SSID) >= maxListedNetworks {
			break
		}
	}

	payload, err := json.Marshal(list)
	if err != nil {
		return nil, errors.Errorf("could not serialize scan list: %v", err)
	}

	return payload, nil
}

// ScanNetworks exposes a cached scan for the local HTTP API.
func (m *Manager) ScanNetworks() ([]*network.Wifi, error) {
	return m.scan(false)
}
