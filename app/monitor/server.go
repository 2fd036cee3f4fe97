package monitor

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupServer builds the health and run-status routes.
func (a *App) SetupServer() {
	a.Server = &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.Logger.Info("Starting server", zap.String("addr", a.Config.Addr))
}

func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if a.Ready(req.Context()) {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods("GET")
	r.HandleFunc("/runs", a.handleRuns).Methods("GET")
	r.HandleFunc("/runs/{table}", a.handleRun).Methods("GET")
	return r
}

func (a *App) handleRuns(w http.ResponseWriter, _ *http.Request) {
	runs := make([]*TableRun, 0, a.Runs.Size())
	a.Runs.Range(func(_ string, run *TableRun) bool {
		runs = append(runs, run)
		return true
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].Table < runs[j].Table })
	writeJSON(w, http.StatusOK, runs)
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	run, ok := a.Runs.Load(table)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run for table"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
