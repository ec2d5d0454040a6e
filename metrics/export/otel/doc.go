// Package otel bridges authkeep metrics to OpenTelemetry observable
// instruments. Values are pulled from engine snapshots on each collection
// cycle; the engine itself never touches the OTel SDK.
package otel
