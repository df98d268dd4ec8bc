package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/UriShX/wifibled/api"
	"github.com/UriShX/wifibled/identity"
	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/pairing"
	"github.com/UriShX/wifibled/taillog"
	"github.com/UriShX/wifibled/wifi"
	"github.com/UriShX/wifibled/wifidb"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// wifibledMain is the true entry point for wifibled. This is required since
// defers created in the top-level scope of a main method aren't executed if
// os.Exit() is called.
func wifibledMain() error {
	tailLog := taillog.New()

	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
	log.AddHook(tailLog)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling != nil && cfg.Profiling.Listen != "" {
		go func() {
			log.Infof("Starting profiling server on %v", cfg.Profiling.Listen)
			// Redirect the root path
			http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
			// All other handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling.Listen, nil)
			if err != nil {
				log.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	// wifible.db persistently stores the provisioned credentials
	db, err := wifidb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open wifible.db: %v", err)
	}

	log.Infof("Opened wifible.db")

	defer func() {
		err := db.Close()
		if err != nil {
			log.Errorf("Could not close wifible.db: %v", err)
		} else {
			log.Info("Closed wifible.db.")
		}
	}()

	// The device name doubles as the advertised BLE name and as the
	// obfuscation key of the configuration channel
	deviceName, err := identity.Derive()
	if err != nil {
		return errors.Errorf("Could not derive device name: %v", err)
	}

	log.Infof("Device name is %v", deviceName)

	// The network stack all connectivity runs through
	var n network.Network

	switch cfg.Net {
	case "wpa":
		n = network.NewWpaNetwork(&network.Config{
			Interface: cfg.Wpa.Interface,
			Logger:    log.New().WithField("system", "network"),
		})

		log.Infof("Created wpa_supplicant network on %v.", cfg.Wpa.Interface)
	case "mock":
		n = network.NewMockNetwork()

		log.Info("Created a mock network.")
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	err = n.Start()
	if err != nil {
		return errors.Errorf("Could not start network: %v", err)
	}

	defer func() {
		err := n.Stop()
		if err != nil {
			log.Errorf("Could not properly shut down network: %v", err)
		} else {
			log.Info("Stopped network.")
		}
	}()

	// create subsystem responsible for the local HTTP API
	api := api.New(&api.Config{
		TailLog: tailLog,
		Log:     log.New().WithField("system", "api"),
	})

	log.Infof("Created API")

	// central manager for scanning, selecting and connecting
	manager := wifi.NewManager(&wifi.Config{
		DB:             db,
		Network:        n,
		DeviceName:     deviceName,
		Restarter:      &supervisorRestarter{},
		Logger:         log.New().WithField("system", "wifi"),
		RetryInterval:  cfg.Wifi.RetryInterval,
		StatusInterval: cfg.Wifi.StatusInterval,
	})

	api.SetManager(manager)

	log.Infof("Created manager.")

	// create subsystem responsible for pairing
	pairingController, err := pairing.NewController(&pairing.Config{
		Logger:     log.New().WithField("system", "pairing"),
		AdapterId:  cfg.Ble.Adapter,
		DeviceName: deviceName,
		Manager:    manager,
	})
	if err != nil {
		return errors.Errorf("Could not create pairing controller: %v", err)
	}

	log.Infof("Created pairing controller.")

	err = pairingController.Start()
	if err != nil {
		return errors.Errorf("Could not start pairing controller: %v", err)
	}

	log.Infof("Started pairing controller.")

	defer func() {
		err := pairingController.Stop()
		if err != nil {
			log.Errorf("Could not properly shut down pairing controller: %v", err)
		}

		log.Infof("Stopped pairing controller.")
	}()

	manager.SetStatusSink(pairingController)

	if cfg.Listen != "" {
		lis, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return errors.Errorf("Could not listen on %v: %v", cfg.Listen, err)
		}

		defer func() {
			_ = lis.Close()
		}()

		go func() {
			log.Infof("Serving API on %v", cfg.Listen)

			err := api.Serve(lis)
			if err != nil {
				log.Errorf("Could not serve api: %v", err)
			}
		}()
	}

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping manager...")
		manager.Shutdown()
	}()

	// blocks until the manager is shut down
	err = manager.Run()
	if err != nil {
		return errors.Errorf("Failed running manager: %v", err)
	}

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := wifibledMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			log.WithError(err).Println("Failed running wifibled.")
		}
		os.Exit(1)
	}
}
