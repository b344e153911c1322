package metrics

import "time"

// StoreOpCompleted records a successful event store operation
func StoreOpCompleted(op string, duration time.Duration) {
	StoreOperationsTotal.WithLabelValues(op, "ok").Inc()
	StoreOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// StoreOpFailed records a failed event store operation
func StoreOpFailed(op string, duration time.Duration) {
	StoreOperationsTotal.WithLabelValues(op, "error").Inc()
	StoreOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveStoreOp records op's outcome. Intended for use with defer:
//
//	defer metrics.ObserveStoreOp("insert", time.Now(), &err)
func ObserveStoreOp(op string, start time.Time, errp *error) {
	if errp != nil && *errp != nil {
		StoreOpFailed(op, time.Since(start))
		return
	}
	StoreOpCompleted(op, time.Since(start))
}
