package network

import (
	"sync"

	"github.com/go-errors/errors"
)

// check MockNetwork compliance to its interface during compile time
var _ Network = (*MockNetwork)(nil)

// MockNetwork simulates the platform network stack. It serves the --net=mock
// configuration for development off the device and the test suites.
type MockNetwork struct {
	mu            sync.Mutex
	wifis         []*Wifi
	connectedSsid string
	scanErr       error
	clients       map[uint32]*Client
	nextClient    nextClient
}

func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		clients: make(map[uint32]*Client),
	}
}

func (m *MockNetwork) Start() error {
	return nil
}

func (m *MockNetwork) Stop() error {
	return nil
}

// SetWifis defines the networks the next scan will discover.
func (m *MockNetwork) SetWifis(wifis []*Wifi) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wifis = wifis
}

// FailScans makes subsequent scans return err.
func (m *MockNetwork) FailScans(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scanErr = err
}

func (m *MockNetwork) Scan() ([]*Wifi, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scanErr != nil {
		return nil, errors.Errorf("unable to scan: %v", m.scanErr)
	}

	wifis := make([]*Wifi, len(m.wifis))
	copy(wifis, m.wifis)

	return wifis, nil
}

func (m *MockNetwork) Connect(ssid string, psk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectedSsid = ssid

	return nil
}

func (m *MockNetwork) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectedSsid = ""

	return nil
}

// ConnectedSsid reports the ssid of the last connection attempt.
func (m *MockNetwork) ConnectedSsid() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connectedSsid
}

// EmitAddressAcquired delivers an address-acquired event to all subscribers,
// the way the platform would after association and DHCP succeed.
func (m *MockNetwork) EmitAddressAcquired(ssid string) {
	m.emit(&AddressAcquiredEvent{Ssid: ssid})
}

// EmitConnectionLost delivers a connection-lost event to all subscribers.
func (m *MockNetwork) EmitConnectionLost() {
	m.emit(&ConnectionLostEvent{})
}

func (m *MockNetwork) emit(event Event) {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	for _, client := range clients {
		select {
		case client.Events <- event:
		case <-client.cancelChan:
		}
	}
}

func (m *MockNetwork) Subscribe() *Client {
	client := &Client{
		Events:     make(chan Event),
		cancelChan: make(chan struct{}),
		network:    m,
	}

	m.nextClient.Lock()
	client.Id = m.nextClient.id
	m.nextClient.id++
	m.nextClient.Unlock()

	m.mu.Lock()
	m.clients[client.Id] = client
	m.mu.Unlock()

	return client
}

func (m *MockNetwork) deleteClient(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.clients, id)
}
