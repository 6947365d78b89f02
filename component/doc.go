// Package component defines lifecycle-managed infrastructure used by reqkit
// clients, and a Registry that starts components in registration order and
// stops them in reverse.
package component
