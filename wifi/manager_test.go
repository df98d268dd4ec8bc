package wifi

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/UriShX/wifibled/codec"
	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/wifidb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeviceName = "ESP32-AABBCCDDEEFF"

type fakeRestarter struct {
	mu        sync.Mutex
	restarted bool
}

func (r *fakeRestarter) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.restarted = true

	return nil
}

func (r *fakeRestarter) Restarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.restarted
}

func newTestManager(t *testing.T) (*Manager, *network.MockNetwork, *wifidb.DB, *fakeRestarter) {
	t.Helper()

	db, err := wifidb.Open(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	net := network.NewMockNetwork()
	restarter := &fakeRestarter{}

	m := NewManager(&Config{
		DB:             db,
		Network:        net,
		DeviceName:     testDeviceName,
		Restarter:      restarter,
		RetryInterval:  time.Hour,
		StatusInterval: 10 * time.Millisecond,
	})

	return m, net, db, restarter
}

func statusWord(m *Manager) uint16 {
	m.statusMtx.Lock()
	defer m.statusMtx.Unlock()

	return m.status.word()
}

func obfuscate(t *testing.T, payload string) []byte {
	t.Helper()

	encoded, err := codec.Obfuscate([]byte(payload), []byte(testDeviceName))
	require.NoError(t, err)

	return encoded
}

func TestHandleConfigWriteCredentials(t *testing.T) {
	t.Parallel()

	m, _, db, _ := newTestManager(t)

	payload := obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)

	require.NoError(t, m.HandleConfigWrite(payload))

	stored, err := db.GetCredentials()
	require.NoError(t, err)

	assert.Equal(t, &wifidb.Credentials{
		SsidPrim: "home",
		PwPrim:   "secret",
		SsidSec:  "work",
		PwSec:    "hunter2",
		Valid:    true,
	}, stored)

	assert.True(t, m.hasCredentials.get())

	// a connect cycle must have been requested
	select {
	case <-m.trigger:
	default:
		t.Fatal("expected a pending connect trigger")
	}
}

func TestHandleConfigWriteMalformed(t *testing.T) {
	t.Parallel()

	m, _, db, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	before, err := db.GetCredentials()
	require.NoError(t, err)

	m.statusChanged.set(false)

	// drain the trigger of the valid write
	select {
	case <-m.trigger:
	default:
	}

	payloads := [][]byte{
		obfuscate(t, `{"ssidPrim":"other"}`),
		obfuscate(t, `{"whatever":42}`),
		[]byte("\x13\x37 raw garbage"),
	}

	for _, payload := range payloads {
		require.NoError(t, m.HandleConfigWrite(payload))
	}

	after, err := db.GetCredentials()
	require.NoError(t, err)

	assert.Equal(t, before, after, "malformed writes must not mutate stored credentials")
	assert.False(t, m.statusChanged.get(), "malformed writes must not signal a change")

	select {
	case <-m.trigger:
		t.Fatal("malformed writes must not trigger a connect cycle")
	default:
	}
}

func TestHandleConfigWriteEmptyPayload(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(nil))
	assert.False(t, m.hasCredentials.get())
}

func TestHandleConfigWriteErase(t *testing.T) {
	t.Parallel()

	m, _, db, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"erase":true}`)))

	stored, err := db.GetCredentials()
	require.NoError(t, err)

	assert.Equal(t, &wifidb.Credentials{}, stored)
	assert.False(t, m.hasCredentials.get())

	// in-memory copy is gone too
	m.credsMtx.Lock()
	assert.Equal(t, wifidb.Credentials{}, m.creds)
	m.credsMtx.Unlock()
}

func TestHandleConfigWriteReset(t *testing.T) {
	t.Parallel()

	m, _, _, restarter := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"reset":true}`)))

	assert.True(t, restarter.Restarted())
}

func TestHandleConfigReadRoundTrip(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	payload, err := m.HandleConfigRead()
	require.NoError(t, err)

	msg, err := codec.DecodeMessage(payload, []byte(testDeviceName))
	require.NoError(t, err)

	require.NotNil(t, msg.Credentials)
	assert.Equal(t, "home", msg.Credentials.SsidPrim)
	assert.Equal(t, "work", msg.Credentials.SsidSec)
}

func TestHandleScanListRead(t *testing.T) {
	t.Parallel()

	m, mockNet, _, _ := newTestManager(t)

	var wifis []*network.Wifi

	wifis = append(wifis, &network.Wifi{Ssid: "open-cafe", Signal: -40, Encryption: network.EncryptionOpen})

	// more secured networks than fit into the list payload
	for _, ssid := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		wifis = append(wifis, &network.Wifi{Ssid: ssid, Signal: -50, Encryption: network.EncryptionWpa2Psk})
	}

	mockNet.SetWifis(wifis)

	payload, err := m.HandleScanListRead()
	require.NoError(t, err)

	var list struct {
		SSID []string `json:"SSID"`
	}
	require.NoError(t, json.Unmarshal(payload, &list))

	assert.Len(t, list.SSID, 10)
	assert.NotContains(t, list.SSID, "open-cafe")
}

func TestHandleScanListReadEmpty(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	// lower the retry bound indirectly by pre-seeding an empty fresh scan
	m.scanMtx.Lock()
	m.lastScan = []*network.Wifi{}
	m.lastScanTime = time.Now()
	m.scanMtx.Unlock()

	done := make(chan []byte, 1)

	go func() {
		payload, err := m.HandleScanListRead()
		if err == nil {
			done <- payload
		}
		close(done)
	}()

	select {
	case payload := <-done:
		assert.JSONEq(t, `{"SSID":[]}`, string(payload))
	case <-time.After(scanListRetries*scanListRetrySleep + 5*time.Second):
		t.Fatal("scan list read did not return within its retry bound")
	}
}

func TestEventHandlersSetStatus(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	m.onAddressAcquired("home")
	status := m.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, SelectedPrimary, status.Selected)
	assert.Equal(t, uint16(0x0001), statusWord(m))
	assert.True(t, m.statusChanged.get())

	m.onAddressAcquired("work")
	assert.Equal(t, SelectedSecondary, m.Status().Selected)
	assert.Equal(t, uint16(0x0002), statusWord(m))

	// connected to something that is neither candidate
	m.onAddressAcquired("neighbor")
	status = m.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, SelectedNone, status.Selected)
	assert.Equal(t, uint16(0x0000), statusWord(m))

	m.onConnectionLost()
	status = m.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, SelectedNone, status.Selected)
	assert.Equal(t, uint16(0x0000), statusWord(m))
}

// TestEventStorm interleaves many acquired/lost events with concurrent status
// reads and asserts that no torn state is ever observed.
func TestEventStorm(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	var wg sync.WaitGroup

	ssids := []string{"home", "work", "neighbor"}

	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			for n := 0; n < 200; n++ {
				if n%2 == 0 {
					m.onAddressAcquired(ssids[(i+n)%len(ssids)])
				} else {
					m.onConnectionLost()
				}
			}
		}()
	}

	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				status := m.Status()

				if !status.Connected {
					assert.Equal(t, SelectedNone, status.Selected, "disconnected status must not carry a candidate")
				}

				switch status.Selected {
				case SelectedPrimary:
					assert.Equal(t, "home", status.Ssid)
				case SelectedSecondary:
					assert.Equal(t, "work", status.Ssid)
				}
			}
		}()
	}

	// let the writers finish, then release the readers
	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestRunConnectFlow(t *testing.T) {
	t.Parallel()

	m, mockNet, _, _ := newTestManager(t)

	mockNet.SetWifis([]*network.Wifi{
		{Ssid: "home", Signal: -40, Encryption: network.EncryptionWpa2Psk},
		{Ssid: "work", Signal: -60, Encryption: network.EncryptionWpa2Psk},
	})

	runErr := make(chan error, 1)

	go func() {
		runErr <- m.Run()
	}()

	defer func() {
		m.Shutdown()
		require.NoError(t, <-runErr)
	}()

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	// the manager picks the stronger primary network
	require.Eventually(t, func() bool {
		return mockNet.ConnectedSsid() == "home"
	}, 5*time.Second, 10*time.Millisecond)

	mockNet.EmitAddressAcquired("home")

	require.Eventually(t, func() bool {
		status := m.Status()
		return status.Connected && status.Selected == SelectedPrimary
	}, 5*time.Second, 10*time.Millisecond)

	// losing the connection re-enters scanning and retries the candidate
	require.NoError(t, mockNet.Disconnect())
	mockNet.EmitConnectionLost()

	require.Eventually(t, func() bool {
		return mockNet.ConnectedSsid() == "home"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunStartsWithStoredCredentials(t *testing.T) {
	t.Parallel()

	m, mockNet, db, _ := newTestManager(t)

	require.NoError(t, db.SetCredentials(&wifidb.Credentials{
		SsidPrim: "home",
		PwPrim:   "secret",
		SsidSec:  "work",
		PwSec:    "hunter2",
		Valid:    true,
	}))

	mockNet.SetWifis([]*network.Wifi{
		{Ssid: "work", Signal: -42, Encryption: network.EncryptionWpa2Psk},
	})

	runErr := make(chan error, 1)

	go func() {
		runErr <- m.Run()
	}()

	defer func() {
		m.Shutdown()
		require.NoError(t, <-runErr)
	}()

	// only the secondary candidate is on the air
	require.Eventually(t, func() bool {
		return mockNet.ConnectedSsid() == "work"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNoCandidateFoundReturnsToIdle(t *testing.T) {
	t.Parallel()

	m, mockNet, _, _ := newTestManager(t)

	mockNet.SetWifis([]*network.Wifi{
		{Ssid: "somebody-else", Signal: -30, Encryption: network.EncryptionWpa2Psk},
	})

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))

	m.connectCycle()

	assert.Equal(t, StateIdle, m.Status().State)
	assert.Empty(t, mockNet.ConnectedSsid())
}
