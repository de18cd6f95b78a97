// Package internaldefs holds the metric names, help strings and bucket
// boundaries shared by the exporters.
//
// Both the Prometheus and OTel exporters read these definitions so that a
// counter has the same name in either backend. Changing a definition here
// changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
