package restmapper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpesa_restmapper_published_total",
	Help: "counter of fire-and-forget envelopes published per endpoint",
}, []string{"endpoint"})

var rpcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpesa_restmapper_rpc_total",
	Help: "counter of request/response calls per endpoint and outcome",
}, []string{"endpoint", "status"})
