package pairing

import (
	"sync"
	"time"

	"github.com/UriShX/wifibled/wifi"
	"github.com/go-errors/errors"
	"github.com/godbus/dbus"
	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/linux/btmgmt"
	"github.com/muka/go-bluetooth/service"
)

const (
	// Service and configuration characteristic UUIDs kept from the original
	// firmware so existing client apps keep working.
	serviceUuid    = "0000aaaa-ead2-11e7-80c1-9a214cf093ae"
	wifiConfigUuid = "00005555-ead2-11e7-80c1-9a214cf093ae"
	wifiListUuid   = "1d338124-7ddc-449e-afc7-67f8673a1160"
	wifiStatusUuid = "5b3595c4-ad4f-4e1e-954e-3b290cc02eb0"

	// Where to expose the application
	objectName = "com.github.urishx"
	objectPath = "/wifibled/pairing/service"
)

type Config struct {
	Logger     Logger
	AdapterId  string
	DeviceName string
	Manager    *wifi.Manager
}

type Controller struct {
	log        Logger
	adapterId  string
	deviceName string
	manager    *wifi.Manager
	app        *service.Application
	statusChar *gattCharacteristic

	connMtx   sync.Mutex
	connected bool
}

// check Controller compliance to the status sink contract during compile time
var _ wifi.StatusSink = (*Controller)(nil)

func NewController(config *Config) (*Controller, error) {
	controller := &Controller{}

	if config.Logger != nil {
		controller.log = config.Logger
	} else {
		controller.log = noopLogger{}
	}

	// Assign the device adapter id (ex. hci0)
	controller.adapterId = config.AdapterId

	controller.deviceName = config.DeviceName
	controller.manager = config.Manager

	var err error

	app := GattApp(objectName, objectPath, config.DeviceName)
	service := app.Service(Primary, serviceUuid, Advertised)

	service.DeviceNameCharacteristic(config.DeviceName).
		UserDescriptionDescriptor("Device Name").
		PresentationDescriptor()
	service.ManufacturerNameCharacteristic("UriShX").
		UserDescriptionDescriptor("Manufacturer Name").
		PresentationDescriptor()
	service.SerialNumberCharacteristic(config.DeviceName).
		UserDescriptionDescriptor("Serial Number").
		PresentationDescriptor()
	service.ModelNumberCharacteristic("wifibled").
		UserDescriptionDescriptor("Model Number").
		PresentationDescriptor()
	service.Characteristic(wifiConfigUuid, controller.readWifiConfig, controller.writeWifiConfig).
		UserDescriptionDescriptor("Wi-Fi Credentials")
	service.Characteristic(wifiListUuid, controller.readWifiScanList, nil).
		UserDescriptionDescriptor("Wi-Fi Scan List")
	controller.statusChar = service.NotifyCharacteristic(wifiStatusUuid).
		UserDescriptionDescriptor("Wi-Fi Connection Status")

	controller.app, err = app.Run()
	if err != nil {
		return nil, errors.Errorf("Could not start app: %v", err)
	}

	return controller, nil
}

func (c *Controller) Start() error {
	mgmt := btmgmt.NewBtMgmt(c.adapterId)
	err := mgmt.Reset()
	if err != nil {
		return errors.Errorf("Reset %s: %v", c.adapterId, err)
	}

	// Sleep to give the device some time after the reset
	time.Sleep(time.Millisecond * 500)

	gattManager, err := api.GetGattManager(c.adapterId)
	if err != nil {
		return errors.Errorf("Get gatt manager failed: %v", err)
	}

	err = gattManager.RegisterApplication(c.app.Path(), map[string]interface{}{})
	if err != nil {
		return errors.Errorf("Register failed: %v", err)
	}

	err = c.app.StartAdvertising(c.adapterId)
	if err != nil {
		return errors.Errorf("Failed to advertise: %v", err)
	}

	err = c.watchConnections()
	if err != nil {
		return errors.Errorf("Failed to watch connections: %v", err)
	}

	return nil
}

func (c *Controller) Stop() error {
	err := c.app.StopAdvertising()
	if err != nil {
		return errors.Errorf("Could not stop advertising: %v", err)
	}

	gattManager, err := api.GetGattManager(c.adapterId)
	if err != nil {
		return errors.Errorf("Get gatt manager failed: %v", err)
	}

	err = gattManager.UnregisterApplication(c.app.Path())
	if err != nil {
		return errors.Errorf("Unregister failed: %v", err)
	}

	return nil
}

// watchConnections tracks whether a central is connected by following the
// Connected property of bluez device objects. The status publisher only
// pushes while this reports true.
func (c *Controller) watchConnections() error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Errorf("Could not get system bus: %v", err)
	}

	rule := "type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',arg0='org.bluez.Device1'"

	call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule)
	if call.Err != nil {
		return errors.Errorf("Could not add match: %v", call.Err)
	}

	signalChan := make(chan *dbus.Signal, 16)
	conn.Signal(signalChan)

	go func() {
		for signal := range signalChan {
			if signal.Name != "org.freedesktop.DBus.Properties.PropertiesChanged" || len(signal.Body) < 2 {
				continue
			}

			if iface, ok := signal.Body[0].(string); !ok || iface != "org.bluez.Device1" {
				continue
			}

			props, ok := signal.Body[1].(map[string]dbus.Variant)
			if !ok {
				continue
			}

			val, ok := props["Connected"]
			if !ok {
				continue
			}

			connected, ok := val.Value().(bool)
			if !ok {
				continue
			}

			if connected {
				c.log.Infof("BLE client connected")
			} else {
				c.log.Infof("BLE client disconnected")
			}

			c.connMtx.Lock()
			c.connected = connected
			c.connMtx.Unlock()
		}
	}()

	return nil
}

// Subscribed reports whether a central currently listens for status updates.
func (c *Controller) Subscribed() bool {
	c.connMtx.Lock()
	defer c.connMtx.Unlock()

	return c.connected
}

// Notify pushes a status value to the subscribed central.
func (c *Controller) Notify(value []byte) error {
	return c.statusChar.UpdateValue(value)
}

func (c *Controller) readWifiConfig() ([]byte, error) {
	c.log.Infof("Reading wifi credentials...")

	payload, err := c.manager.HandleConfigRead()
	if err != nil {
		return nil, errors.Errorf("Could not read credentials: %v", err)
	}

	return payload, nil
}

func (c *Controller) writeWifiConfig(value []byte) error {
	c.log.Infof("Writing wifi configuration (%v bytes)", len(value))

	err := c.manager.HandleConfigWrite(value)
	if err != nil {
		return errors.Errorf("Could not apply configuration: %v", err)
	}

	return nil
}

func (c *Controller) readWifiScanList() ([]byte, error) {
	c.log.Infof("Reading wifi scan list...")

	payload, err := c.manager.HandleScanListRead()
	if err != nil {
		return nil, errors.Errorf("Could not get wifi scan list: %v", err)
	}

	return payload, nil
}
