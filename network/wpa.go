package network

import (
	"sync"
	"time"

	"github.com/UriShX/wifibled/network/wpa"
	"github.com/go-errors/errors"
)

// check WpaNetwork compliance to its interface during compile time
var _ Network = (*WpaNetwork)(nil)

// scanTimeout bounds a blocking Scan. wpa_supplicant usually signals
// completion after 2-5 seconds.
const scanTimeout = 10 * time.Second

type Config struct {
	Interface string
	Logger    Logger
}

type nextClient struct {
	sync.Mutex
	id uint32
}

// WpaNetwork drives wpa_supplicant over its D-Bus control interface.
type WpaNetwork struct {
	log        Logger
	wpa        *wpa.Wpa
	ifname     string
	iface      *wpa.Interface
	clients    map[uint32]*Client
	clientMtx  sync.Mutex
	nextClient nextClient
	done       chan struct{}
}

func NewWpaNetwork(config *Config) *WpaNetwork {
	net := &WpaNetwork{
		ifname:  config.Interface,
		wpa:     wpa.New(),
		clients: make(map[uint32]*Client),
		done:    make(chan struct{}),
	}

	if config.Logger != nil {
		net.log = config.Logger
	} else {
		net.log = noopLogger{}
	}

	return net
}

func (n *WpaNetwork) Start() error {
	err := n.wpa.Start()
	if err != nil {
		return errors.Errorf("could not start wpa: %v", err)
	}

	iface, err := n.wpa.GetInterface(n.ifname)
	if err != nil {
		_ = n.Stop()
		return errors.Errorf("could not find interface %v: %v", n.ifname, err)
	}

	n.iface = iface

	stateClient, err := n.iface.StateChanged()
	if err != nil {
		_ = n.Stop()
		return errors.Errorf("could not listen for state changes: %v", err)
	}

	go n.watchState(stateClient)

	return nil
}

func (n *WpaNetwork) Stop() error {
	close(n.done)

	err := n.wpa.Stop()
	if err != nil {
		return errors.Errorf("could not stop wpa: %v", err)
	}

	return nil
}

// watchState maps supplicant state transitions onto the coarse network
// events the manager consumes.
func (n *WpaNetwork) watchState(client *wpa.StateClient) {
	defer client.Cancel()

	for {
		select {
		case state, ok := <-client.States:
			if !ok {
				return
			}

			n.log.Debugf("supplicant state changed to %v", state)

			switch state {
			case wpa.StateCompleted:
				ssid, err := n.iface.CurrentSsid()
				if err != nil {
					n.log.Warnf("could not read current ssid: %v", err)
				}

				n.emit(&AddressAcquiredEvent{Ssid: ssid})
			case wpa.StateDisconnected:
				n.emit(&ConnectionLostEvent{})
			}
		case <-n.done:
			return
		}
	}
}

func (n *WpaNetwork) Scan() ([]*Wifi, error) {
	doneClient, err := n.iface.ScanDone()
	if err != nil {
		return nil, errors.Errorf("unable to listen to scan completion: %v", err)
	}

	defer doneClient.Cancel()

	err = n.iface.Scan()
	if err != nil {
		return nil, errors.Errorf("unable to scan: %v", err)
	}

	timeout := time.After(scanTimeout)

	// Wait for the completion signal. A timeout is not an error, the
	// accumulated BSS list is returned either way.
	select {
	case <-doneClient.ScanDone:
	case <-timeout:
		n.log.Warnf("scan did not signal completion within %v", scanTimeout)
	}

	bsss, err := n.iface.BSSs()
	if err != nil {
		return nil, errors.Errorf("unable to get BSSs: %v", err)
	}

	var wifis []*Wifi

	for _, bss := range bsss {
		b, err := bss.GetAll()
		if err != nil {
			n.log.Debugf("skipping unreadable BSS %v: %v", bss, err)
			continue
		}

		wifis = append(wifis, &Wifi{
			Ssid:       b.Ssid,
			Signal:     int(b.Signal),
			Encryption: encryptionOf(b),
		})
	}

	return wifis, nil
}

func encryptionOf(b *wpa.Bss) Encryption {
	switch {
	case len(b.RsnKeyMgmt) > 0 && len(b.WpaKeyMgmt) > 0:
		return EncryptionWpaWpa2Psk
	case len(b.RsnKeyMgmt) > 0:
		for _, keyMgmt := range b.RsnKeyMgmt {
			if keyMgmt == "wpa-eap" {
				return EncryptionWpa2Enterprise
			}
		}
		return EncryptionWpa2Psk
	case len(b.WpaKeyMgmt) > 0:
		return EncryptionWpaPsk
	case b.Privacy:
		return EncryptionWep
	default:
		return EncryptionOpen
	}
}

func (n *WpaNetwork) Connect(ssid string, psk string) error {
	err := n.iface.RemoveAllNetworks()
	if err != nil {
		return errors.Errorf("could not remove previous networks: %v", err)
	}

	net, err := n.iface.AddNetwork(ssid, psk)
	if err != nil {
		return errors.Errorf("could not add network: %v", err)
	}

	err = n.iface.SelectNetwork(net)
	if err != nil {
		return errors.Errorf("could not select network: %v", err)
	}

	return nil
}

func (n *WpaNetwork) Disconnect() error {
	err := n.iface.Disconnect()
	if err != nil {
		return errors.Errorf("could not disconnect: %v", err)
	}

	return nil
}

func (n *WpaNetwork) emit(event Event) {
	n.clientMtx.Lock()
	clients := make([]*Client, 0, len(n.clients))
	for _, client := range n.clients {
		clients = append(clients, client)
	}
	n.clientMtx.Unlock()

	for _, client := range clients {
		select {
		case client.Events <- event:
		case <-client.cancelChan:
		}
	}
}

func (n *WpaNetwork) Subscribe() *Client {
	client := &Client{
		Events:     make(chan Event),
		cancelChan: make(chan struct{}),
		network:    n,
	}

	n.nextClient.Lock()
	client.Id = n.nextClient.id
	n.nextClient.id++
	n.nextClient.Unlock()

	n.clientMtx.Lock()
	n.clients[client.Id] = client
	n.clientMtx.Unlock()

	return client
}

func (n *WpaNetwork) deleteClient(id uint32) {
	n.clientMtx.Lock()
	defer n.clientMtx.Unlock()

	delete(n.clients, id)
}
