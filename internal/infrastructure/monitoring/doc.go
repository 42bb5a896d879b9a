/*
Package monitoring provides Prometheus metrics for the desktop daemon.

# Metrics

  - desktop_operations_total, desktop_operation_duration_seconds: batches by kind and outcome
  - desktop_operation_items_total: per-item results (completed, skipped, failed)
  - desktop_conflict_decisions_total: replace, replace_all, skip, cancel
  - desktop_remote_calls_total: remote filesystem verbs by status
  - desktop_realtime_events_total: events applied or suppressed as self-echo
  - desktop_realtime_reconnect_attempts_total: reconnect attempts
  - desktop_undo_total, desktop_sessions_active, desktop_ui_ws_*

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "move")
	// ... run the batch ...
	timer.Stop("completed")

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
