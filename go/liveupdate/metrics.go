package liveupdate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fannedOutTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fpesa_liveupdate_fanned_out_total",
	Help: "counter of bus messages fanned out to websocket clients",
})
