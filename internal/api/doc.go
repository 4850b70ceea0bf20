// Package api exposes the HTTP interface for the timerboard service: timer
// creation and removal (the data source surface) and display state reads
// (the display sink surface).
package api
