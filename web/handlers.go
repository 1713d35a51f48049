package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/zeptools/gw-multids/datasource"
	"github.com/zeptools/gw-multids/db/sqldb"
)

// DataSourcesReport describes what a registry exposes
type DataSourcesReport struct {
	Mode        string   `json:"mode"`
	Names       []string `json:"names"`
	IDs         []string `json:"ids"`
	DefaultName string   `json:"default_name,omitempty"`
	UnknownKey  string   `json:"unknown_key,omitempty"`
}

type PingResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handlers serves diagnostics over a registry
type Handlers struct {
	Registry *datasource.Registry
}

func (h Handlers) Report() DataSourcesReport {
	rep := DataSourcesReport{Mode: string(h.Registry.Mode())}
	for _, n := range h.Registry.Names() {
		rep.Names = append(rep.Names, string(n))
	}
	for _, id := range h.Registry.IDs() {
		rep.IDs = append(rep.IDs, id.String())
	}
	if rds, err := h.Registry.RoutingDataSource(); err == nil {
		rep.DefaultName = string(rds.DefaultName())
		rep.UnknownKey = string(rds.Policy())
	}
	return rep
}

// DataSources - GET /datasources
func (h Handlers) DataSources(w http.ResponseWriter, _ *http.Request) {
	EncodeWriteJSON(w, http.StatusOK, h.Report())
}

// Ping - GET /ping
// In dynamic mode it pings the pool the request routes to, in static mode every pool.
func (h Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if rds, err := h.Registry.RoutingDataSource(); err == nil {
		target, err := rds.Resolve(ctx)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		res := ping(ctx, target)
		EncodeWriteJSON(w, pingStatus(res), res)
		return
	}

	results := make([]PingResult, 0)
	status := http.StatusOK
	for _, name := range h.Registry.Names() {
		b, err := h.Registry.Bundle(name)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		res := ping(ctx, sqldb.Target{Name: string(name), Client: b.Pool()})
		if !res.OK {
			status = http.StatusServiceUnavailable
		}
		results = append(results, res)
	}
	EncodeWriteJSON(w, status, results)
}

// PingName - GET /ping/{name}
func (h Handlers) PingName(w http.ResponseWriter, r *http.Request) {
	name := datasource.Name(mux.Vars(r)["name"])
	var pool sqldb.Client
	if rds, err := h.Registry.RoutingDataSource(); err == nil {
		p, ok := rds.Pool(name)
		if !ok {
			writeLookupError(w, datasource.NotFoundError{ID: datasource.ID{Name: name, Kind: datasource.KindPool}})
			return
		}
		pool = p
	} else {
		b, err := h.Registry.Bundle(name)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		pool = b.Pool()
	}
	res := ping(r.Context(), sqldb.Target{Name: string(name), Client: pool})
	EncodeWriteJSON(w, pingStatus(res), res)
}

func ping(ctx context.Context, target sqldb.Target) PingResult {
	res := PingResult{Name: target.Name, OK: true}
	if err := target.Client.Ping(ctx); err != nil {
		res.OK = false
		res.Error = err.Error()
	}
	return res
}

func pingStatus(res PingResult) int {
	if res.OK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeLookupError(w http.ResponseWriter, err error) {
	var (
		rk datasource.RoutingKeyNotFoundError
		nf datasource.NotFoundError
	)
	switch {
	case errors.As(err, &rk), errors.As(err, &nf):
		WriteSimpleErrorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, datasource.ErrNotRegistered):
		WriteSimpleErrorJSON(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteSimpleErrorJSON(w, http.StatusInternalServerError, err.Error())
	}
}

// NewRouter routes the diagnostics endpoints. metrics may be nil.
func NewRouter(h Handlers, metrics http.Handler, wrappers ...HandlerWrapper) *mux.Router {
	r := mux.NewRouter()
	for _, w := range wrappers {
		r.Use(w.Wrap)
	}
	r.HandleFunc("/datasources", h.DataSources).Methods(http.MethodGet)
	r.HandleFunc("/ping", h.Ping).Methods(http.MethodGet)
	r.HandleFunc("/ping/{name}", h.PingName).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}
