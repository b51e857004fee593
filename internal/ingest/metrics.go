package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipehub_ingest_pages_total",
			Help: "Pages fetched from the recipe API",
		},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_ingest_records_total",
			Help: "Raw records seen by the validator",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	imagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_ingest_images_total",
			Help: "Image downloads by outcome",
		},
		[]string{"result"}, // "ok", "failed"
	)

	loadedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_ingest_loaded_rows_total",
			Help: "Rows bulk-loaded per table",
		},
		[]string{"table"},
	)
)
