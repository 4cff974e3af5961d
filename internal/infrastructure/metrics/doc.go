// Package metrics holds panelnode's Prometheus collectors and the small
// HTTP server that exposes them next to a /healthz endpoint.
//
// Collectors are package-level and registered with the default registry,
// so the protocol packages record through plain function calls:
//
//	metrics.FrameIn("hello_request")
//	metrics.Command("mqtt", entity.IDScreen, metrics.OutcomeOK)
package metrics
