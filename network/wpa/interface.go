package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// Supplicant interface states this client cares about. The supplicant walks
// through several association states in between; only the two ends matter to
// the event mapping.
const (
	StateCompleted    = "completed"
	StateDisconnected = "disconnected"
)

type Interface struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (i *Interface) Scan() error {
	call := i.obj.Call(ifaceIface+".Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return errors.Errorf("could not scan: %v", call.Err)
	}

	return nil
}

type ScanDoneClient struct {
	ScanDone <-chan bool
	Cancel   func()
}

func (i *Interface) ScanDone() (*ScanDoneClient, error) {
	changeChan := make(chan bool)
	signalChan := make(chan *dbus.Signal)

	client := &ScanDoneClient{
		ScanDone: changeChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(ifaceIface, "ScanDone", dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
		},
	}

	go func() {
		i.wpa.conn.Signal(signalChan)

		for signal := range signalChan {
			if signal.Name == ifaceIface+".ScanDone" && signal.Path == i.obj.Path() {
				if success, ok := signal.Body[0].(bool); ok {
					select {
					case changeChan <- success:
					default:
					}
				}
			}
		}
	}()

	call := i.wpa.conn.BusObject().AddMatchSignal(ifaceIface, "ScanDone", dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

type StateClient struct {
	States <-chan string
	Cancel func()
}

// StateChanged delivers the State values carried by PropertiesChanged
// signals of the interface.
func (i *Interface) StateChanged() (*StateClient, error) {
	stateChan := make(chan string)
	signalChan := make(chan *dbus.Signal)

	client := &StateClient{
		States: stateChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(ifaceIface, "PropertiesChanged", dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
		},
	}

	go func() {
		i.wpa.conn.Signal(signalChan)

		for signal := range signalChan {
			if signal.Name != ifaceIface+".PropertiesChanged" || signal.Path != i.obj.Path() {
				continue
			}

			props, ok := signal.Body[0].(map[string]dbus.Variant)
			if !ok {
				continue
			}

			if val, ok := props["State"]; ok {
				if state, ok := val.Value().(string); ok {
					stateChan <- state
				}
			}
		}
	}()

	call := i.wpa.conn.BusObject().AddMatchSignal(ifaceIface, "PropertiesChanged", dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

func (i *Interface) BSSs() ([]*BSS, error) {
	v, err := i.obj.GetProperty(ifaceIface + ".BSSs")
	if err != nil {
		return nil, errors.Errorf("could not get bsss: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert result: %v", err)
	}

	var bsss []*BSS

	for _, objectPath := range objectPaths {
		bsss = append(bsss, &BSS{
			obj: i.wpa.conn.Object(busName, objectPath),
		})
	}

	return bsss, nil
}

// CurrentSsid resolves the ssid of the currently associated BSS. An empty
// string means no association.
func (i *Interface) CurrentSsid() (string, error) {
	v, err := i.obj.GetProperty(ifaceIface + ".CurrentBSS")
	if err != nil {
		return "", errors.Errorf("could not get current bss: %v", err)
	}

	objPath, ok := v.Value().(dbus.ObjectPath)
	if !ok {
		return "", errors.Errorf("could not convert result")
	}

	// the supplicant reports "/" when not associated
	if objPath == "/" {
		return "", nil
	}

	bss := &BSS{obj: i.wpa.conn.Object(busName, objPath)}

	b, err := bss.GetAll()
	if err != nil {
		return "", err
	}

	return b.Ssid, nil
}

func (i *Interface) AddNetwork(ssid string, psk string) (*Network, error) {
	args := map[string]interface{}{}

	if psk != "" {
		args["ssid"] = ssid
		args["psk"] = psk
	} else {
		args["ssid"] = ssid
		args["key_mgmt"] = "NONE"
	}

	call := i.obj.Call(ifaceIface+".AddNetwork", 0, args)
	if call.Err != nil {
		return nil, errors.Errorf("could not add network: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Network{
		obj: i.wpa.conn.Object(busName, objPath),
	}, nil
}

func (i *Interface) SelectNetwork(net *Network) error {
	call := i.obj.Call(ifaceIface+".SelectNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not select network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveAllNetworks() error {
	call := i.obj.Call(ifaceIface+".RemoveAllNetworks", 0)
	if call.Err != nil {
		return errors.Errorf("could not remove all networks: %v", call.Err)
	}

	return nil
}

func (i *Interface) Disconnect() error {
	call := i.obj.Call(ifaceIface+".Disconnect", 0)
	if call.Err != nil {
		return errors.Errorf("could not disconnect: %v", call.Err)
	}

	return nil
}
