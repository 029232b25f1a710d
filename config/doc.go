// Package config loads the service and pool-demo configuration from YAML files
// and environment variables. It covers the HTTP server, logging, the error-page
// container, filter and interceptor registration, metrics buffering and the
// worker pool used by the demo.
package config
