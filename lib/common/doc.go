// Package common provides the process configuration (storage backend, codec,
// miss policy, log level) and the logger factory shared by the CLI and the libraries.
package common
