package liveapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// NewRouter serves the hub. gatherer may be nil, then /metrics is not routed.
func NewRouter(hub *Hub, version string, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, map[string]interface{}{
			"message": "TeleInfo bridge",
			"status":  "running",
			"version": version,
			"clients": hub.ClientCount(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		latest := hub.Latest()
		if len(latest) == 0 {
			writeJson(w, http.StatusNotFound, map[string]string{
				"error": "No readings available yet",
			})
			return
		}
		byTopic := make(map[string]string, len(latest))
		for _, msg := range latest {
			byTopic[msg.Topic] = msg.Payload
		}
		writeJson(w, http.StatusOK, byTopic)
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debugf("WebSocket upgrade error: %v", err)
			return
		}
		if err := hub.addClient(conn); err != nil {
			conn.Close()
			return
		}

		// Keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.removeClient(conn)
				break
			}
		}
	}).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
