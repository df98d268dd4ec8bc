// Package wifi contains the connection manager of the daemon. It owns the
// credential copy of the current connection cycle, the candidate selection,
// the connection state machine and the periodic status publisher.
package wifi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/wifidb"
	"github.com/go-errors/errors"
)

// State of the connection state machine.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}

// StatusSink is where the publisher pushes the status word. The BLE transport
// adapter implements it.
type StatusSink interface {
	// Subscribed reports whether a client currently listens for
	// notifications. No subscriber means the push is skipped, not failed.
	Subscribed() bool
	Notify(value []byte) error
}

// Restarter performs the full device restart the reset directive asks for.
type Restarter interface {
	Restart() error
}

// reconcileInterval is the scheduling tick of the controller.
const reconcileInterval = 1 * time.Second

// flag is a bool shared between the run loop and the event goroutine.
type flag int32

func (f *flag) set(value bool) {
	var v int32
	if value {
		v = 1
	}
	atomic.StoreInt32((*int32)(f), v)
}

func (f *flag) get() bool {
	return atomic.LoadInt32((*int32)(f)) != 0
}

// swap stores value and reports the previous state.
func (f *flag) swap(value bool) bool {
	var v int32
	if value {
		v = 1
	}
	return atomic.SwapInt32((*int32)(f), v) != 0
}

type Config struct {
	DB         *wifidb.DB
	Network    network.Network
	DeviceName string
	Restarter  Restarter
	Logger     Logger

	// RetryInterval bounds how often a failed candidate search is retried
	// while credentials are present and the link is down.
	RetryInterval time.Duration

	// StatusInterval is the period of the status notification loop.
	StatusInterval time.Duration
}

type Manager struct {
	db         *wifidb.DB
	net        network.Network
	deviceName string
	restarter  Restarter
	log        Logger

	retryInterval  time.Duration
	statusInterval time.Duration

	// statusMtx guards status and state. It is the only lock of the shared
	// connection state; event handlers, the publisher and the reconcile step
	// all go through it. Scanning and connecting never happen while it is
	// held.
	statusMtx sync.Mutex
	status    connectionStatus
	state     State

	// statusChanged and hasCredentials are reconcile hints. They carry no
	// payload, the reconcile step re-reads the actual state under statusMtx.
	statusChanged  flag
	hasCredentials flag

	// credsMtx guards the read-only credential copy of the running
	// connection cycle.
	credsMtx sync.Mutex
	creds    wifidb.Credentials

	// scanMtx serializes platform scans and guards the scan cache shared
	// with the scan-list characteristic.
	scanMtx      sync.Mutex
	lastScan     []*network.Wifi
	lastScanTime time.Time

	lastAttempt time.Time

	sink     StatusSink
	trigger  chan struct{}
	done     chan struct{}
	shutdown sync.Once
}

func NewManager(config *Config) *Manager {
	m := &Manager{
		db:             config.DB,
		net:            config.Network,
		deviceName:     config.DeviceName,
		restarter:      config.Restarter,
		retryInterval:  config.RetryInterval,
		statusInterval: config.StatusInterval,
		trigger:        make(chan struct{}, 1),
		done:           make(chan struct{}),
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	if m.retryInterval == 0 {
		m.retryInterval = 30 * time.Second
	}

	if m.statusInterval == 0 {
		m.statusInterval = 1 * time.Second
	}

	return m
}

// SetStatusSink wires the transport the publisher pushes to. Must be called
// before Run.
func (m *Manager) SetStatusSink(sink StatusSink) {
	m.sink = sink
}

// Run drives the manager until Shutdown. It loads stored credentials,
// registers the event handlers on the network stack, starts the publisher
// loop and reconciles once per tick.
func (m *Manager) Run() error {
	creds, err := m.db.GetCredentials()
	if err != nil {
		m.log.Warnf("Could not retrieve saved credentials: %v", err)
	} else if creds.Valid {
		m.log.Infof("Found stored credentials for %v / %v", creds.SsidPrim, creds.SsidSec)

		m.setCredentials(creds)
	} else {
		m.log.Infof("No stored credentials, waiting for configuration over BLE.")
	}

	client := m.net.Subscribe()
	defer client.Cancel()

	// Asynchronous event entry point, concurrent to the reconcile flow.
	go m.consumeEvents(client)

	go m.publishLoop()

	if m.hasCredentials.get() {
		m.connectCycle()
	}

	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.trigger:
			m.connectCycle()
		case <-ticker.C:
			m.reconcile()
		case <-m.done:
			return nil
		}
	}
}

// Shutdown stops the run and publisher loops.
func (m *Manager) Shutdown() {
	m.shutdown.Do(func() {
		close(m.done)
	})
}

// reconcile is the once-per-tick step of the controller. It consumes the
// statusChanged hint exactly once and re-enters the connect cycle when the
// link is down, credentials exist and the retry interval has elapsed.
func (m *Manager) reconcile() {
	if m.statusChanged.swap(false) {
		m.statusMtx.Lock()
		connected := m.status.isConnected
		selected := m.status.selected
		ssid := m.status.connectedSsid
		m.statusMtx.Unlock()

		if connected {
			m.log.Infof("Connected to %v (%v candidate)", ssid, selected)
		} else {
			m.log.Infof("Lost connection")
		}

		if !connected && m.hasCredentials.get() {
			m.connectCycle()
		}

		return
	}

	if !m.hasCredentials.get() {
		return
	}

	m.statusMtx.Lock()
	idle := !m.status.isConnected && m.state != StateConnecting
	m.statusMtx.Unlock()

	if idle && time.Since(m.lastAttempt) >= m.retryInterval {
		m.connectCycle()
	}
}

// connectCycle runs one scan-select-connect pass. Exactly one connection
// attempt is in flight at a time since this is only called from the run loop.
func (m *Manager) connectCycle() {
	m.lastAttempt = time.Now()

	m.setState(StateScanning)

	wifis, err := m.scan(true)
	if err != nil {
		m.log.Errorf("Could not scan: %v", err)
		m.setState(StateIdle)
		return
	}

	m.credsMtx.Lock()
	creds := m.creds
	m.credsMtx.Unlock()

	outcome := Select(wifis, &creds)
	if !outcome.Found {
		m.log.Infof("No configured access point found among %v networks.", len(wifis))
		m.setState(StateIdle)
		return
	}

	ssid, psk := creds.SsidSec, creds.PwSec
	if outcome.UsePrimary {
		ssid, psk = creds.SsidPrim, creds.PwPrim
	}

	m.log.Infof("Starting connection to %v", ssid)

	m.setState(StateConnecting)

	if err := m.net.Connect(ssid, psk); err != nil {
		m.log.Errorf("Could not start connection attempt: %v", err)
		m.setState(StateIdle)
	}

	// The outcome arrives asynchronously through the event handlers. An
	// attempt that never resolves is superseded by the platform's own
	// lost event.
}

func (m *Manager) setState(state State) {
	m.statusMtx.Lock()
	m.state = state
	m.statusMtx.Unlock()
}

func (m *Manager) consumeEvents(client *network.Client) {
	for {
		select {
		case event := <-client.Events:
			switch e := event.(type) {
			case *network.AddressAcquiredEvent:
				m.onAddressAcquired(e.Ssid)
			case *network.ConnectionLostEvent:
				m.onConnectionLost()
			}
		case <-m.done:
			return
		}
	}
}

// onAddressAcquired handles the platform's got-address event. Runs on the
// event goroutine, concurrent to the run loop and the publisher.
func (m *Manager) onAddressAcquired(ssid string) {
	m.credsMtx.Lock()
	creds := m.creds
	m.credsMtx.Unlock()

	m.statusMtx.Lock()
	m.status.isConnected = true
	m.status.connectedSsid = ssid

	// A connection whose ssid matches neither candidate stays selected=none:
	// connected to something, but no candidate gets reported.
	switch ssid {
	case creds.SsidPrim:
		m.status.selected = SelectedPrimary
	case creds.SsidSec:
		m.status.selected = SelectedSecondary
	default:
		m.status.selected = SelectedNone
	}

	selected := m.status.selected
	m.state = StateConnected
	m.statusMtx.Unlock()

	if selected == SelectedNone {
		m.log.Warnf("Connected to %v which is neither configured candidate.", ssid)
	}

	m.statusChanged.set(true)
}

// onConnectionLost handles the platform's lost-connection event.
func (m *Manager) onConnectionLost() {
	m.statusMtx.Lock()
	m.status.isConnected = false
	m.status.selected = SelectedNone
	m.status.connectedSsid = ""

	if m.hasCredentials.get() {
		m.state = StateScanning
	} else {
		m.state = StateIdle
	}
	m.statusMtx.Unlock()

	m.statusChanged.set(true)
}

func (m *Manager) setCredentials(creds *wifidb.Credentials) {
	m.credsMtx.Lock()
	m.creds = *creds
	m.credsMtx.Unlock()

	m.hasCredentials.set(creds.Valid)
}

// scan performs a platform scan, or serves the cached result of a recent one
// when force is false. Never called with statusMtx held.
func (m *Manager) scan(force bool) ([]*network.Wifi, error) {
	m.scanMtx.Lock()
	defer m.scanMtx.Unlock()

	if !force && time.Since(m.lastScanTime) <= scanFreshness && m.lastScan != nil {
		return m.lastScan, nil
	}

	wifis, err := m.net.Scan()
	if err != nil {
		return nil, errors.Errorf("could not scan: %v", err)
	}

	for _, wifi := range wifis {
		m.log.Debugf("Found AP: %v RSSI: %v Encryption: %v", wifi.Ssid, wifi.Signal, wifi.Encryption)
	}

	m.lastScan = wifis
	m.lastScanTime = time.Now()

	return wifis, nil
}

// Status is a snapshot for the local HTTP API.
type Status struct {
	Connected bool
	Selected  Selected
	Ssid      string
	State     State
}

func (m *Manager) Status() *Status {
	m.statusMtx.Lock()
	defer m.statusMtx.Unlock()

	return &Status{
		Connected: m.status.isConnected,
		Selected:  m.status.selected,
		Ssid:      m.status.connectedSsid,
		State:     m.state,
	}
}
