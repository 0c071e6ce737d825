package messages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpesa_messages_post_total",
	Help: "counter of consumed post messages by outcome",
}, []string{"status"})

var getTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpesa_messages_get_total",
	Help: "counter of handled get requests by outcome",
}, []string{"status"})
