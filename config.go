package main

import (
	"time"

	"github.com/jessevdk/go-flags"
)

type wpaConfig struct {
	Interface string `long:"interface" description:"Wireless interface wpa_supplicant controls"`
}

type bleConfig struct {
	Adapter string `long:"adapter" description:"Bluetooth adapter to advertise on"`
}

type wifiConfig struct {
	RetryInterval  time.Duration `long:"retryinterval" description:"How often to retry finding a configured access point"`
	StatusInterval time.Duration `long:"statusinterval" description:"Period of the status notifications"`
}

type profilingConfig struct {
	Listen string `long:"listen" description:"Add an ip:port to listen for profiling connections"`
}

type config struct {
	ShowVersion bool             `short:"V" long:"version" description:"Display version information and exit"`
	Debug       bool             `long:"debug" description:"Start in debug mode"`
	DataDir     string           `long:"datadir" description:"Path to the data directory"`
	Listen      string           `long:"listen" description:"Add an ip:port to listen for API connections"`
	Net         string           `long:"net" description:"Network backend (wpa or mock)"`
	Wpa         *wpaConfig       `group:"wpa" namespace:"wpa"`
	Ble         *bleConfig       `group:"ble" namespace:"ble"`
	Wifi        *wifiConfig      `group:"wifi" namespace:"wifi"`
	Profiling   *profilingConfig `group:"profiling" namespace:"profiling"`
}

func loadConfig() (*config, error) {
	cfg := config{
		DataDir: "./data",
		Net:     "wpa",
		Wpa: &wpaConfig{
			Interface: "wlan0",
		},
		Ble: &bleConfig{
			Adapter: "hci0",
		},
		Wifi: &wifiConfig{
			RetryInterval:  30 * time.Second,
			StatusInterval: 1 * time.Second,
		},
	}

	parser := flags.NewParser(&cfg, flags.Default)

	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
