package api

import (
	"net"
	"net/http"

	"github.com/UriShX/wifibled/taillog"
	"github.com/UriShX/wifibled/wifi"
	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
)

type Config struct {
	TailLog *taillog.TailLog
	Log     Logger
}

type Api struct {
	manager *wifi.Manager
	tailLog *taillog.TailLog
	router  *mux.Router
	log     Logger
}

func New(config *Config) *Api {
	api := &Api{
		router:  mux.NewRouter(),
		tailLog: config.TailLog,
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/networks", api.handleGetNetworks()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/logs", api.handleGetLogs()).Methods(http.MethodGet)

	return api
}

func (a *Api) SetManager(manager *wifi.Manager) {
	a.manager = manager
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}
