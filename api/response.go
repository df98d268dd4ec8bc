package api

import (
	"encoding/json"
	"net/http"
)

// jsonResponse writes v as the JSON body of the response. Encoding failures
// are logged, the status code is already on the wire at that point.
func (a *Api) jsonResponse(w http.ResponseWriter, v interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Errorf("Could not respond with JSON: %v", err)
	}
}
