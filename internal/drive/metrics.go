package drive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_operations_total",
			Help: "Engine operations by name and outcome kind.",
		},
		[]string{"operation", "outcome"},
	)

	authorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_authorization_denials_total",
			Help: "Authorization decisions that denied access, by reason.",
		},
		[]string{"reason"},
	)

	versionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drive_version_conflicts_total",
			Help: "File mutations rejected because the file changed concurrently.",
		},
	)

	uploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drive_uploaded_bytes_total",
			Help: "Bytes accepted by uploads and content replacements.",
		},
	)
)

// observe records the outcome of an operation. Call it deferred with a
// pointer to the named error result.
func observe(operation string, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(KindOf(*errp))
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
