package api

import (
	"net/http"
)

type getStatusResponse struct {
	Connected bool   `json:"connected"`
	Selected  string `json:"selected"`
	Ssid      string `json:"ssid"`
	State     string `json:"state"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := a.manager.Status()

		res := &getStatusResponse{
			Connected: status.Connected,
			Selected:  status.Selected.String(),
			Ssid:      status.Ssid,
			State:     status.State.String(),
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}

type getNetworksResponseItem struct {
	Ssid       string `json:"ssid"`
	Signal     int    `json:"signal"`
	Encryption string `json:"encryption"`
}

func (a *Api) handleGetNetworks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wifis, err := a.manager.ScanNetworks()
		if err != nil {
			a.log.Errorf("Could not scan networks: %v", err)
			a.jsonResponse(w, map[string]string{"error": "could not scan"}, http.StatusInternalServerError)
			return
		}

		// Use literal instead of declaration so it serializes into empty json array
		res := []*getNetworksResponseItem{}
		for _, wifi := range wifis {
			res = append(res, &getNetworksResponseItem{
				Ssid:       wifi.Ssid,
				Signal:     wifi.Signal,
				Encryption: string(wifi.Encryption),
			})
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}

type getLogsResponse struct {
	Lines []string `json:"lines"`
}

func (a *Api) handleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := &getLogsResponse{
			Lines: []string{},
		}

		if a.tailLog != nil {
			res.Lines = a.tailLog.Tail()
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
