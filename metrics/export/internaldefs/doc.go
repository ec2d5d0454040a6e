// Package internaldefs holds the shared metric definition tables used by the
// Prometheus and OpenTelemetry exporters. It exists so both exporters emit
// identical names without importing each other.
package internaldefs
