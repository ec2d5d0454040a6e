// Package prometheus renders authkeep metrics in the Prometheus text
// exposition format without depending on a client library.
package prometheus
