// Package msgs defines the report messages published while programming.
package msgs

// Reports are produced by the flasher and consumed by monitors, e.g.
// over MQTT. Every message travels wrapped in a Typed envelope carrying
// the type ID, the reporting host and the port.
