// Package telemetry exports engine activity to Prometheus and
// OpenTelemetry. Both integrations are plain server.Hooks sets: build
// one, attach it with EventLoop.AddHooks and the engine does the rest.
//
//	loop.AddHooks(telemetry.Prometheus(
//		telemetry.WithNamespace("compositor"),
//	))
//	loop.AddHooks(telemetry.Tracing())
//
// The hooks run on the dispatch goroutine and only touch atomic metric
// primitives, so they add no meaningful latency to dispatch.
package telemetry
