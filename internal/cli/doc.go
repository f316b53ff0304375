// Package cli implements the fleetwatch command-line interface.
//
// Each Cobra command parses flags and hands off to a *Command function in
// the same package, which wires the internal packages together:
//
//	fleetwatch watch              - Interactive fleet dashboard
//	fleetwatch snapshot           - Print the current fleet once and exit
//	fleetwatch prefs [show|set|reset|edit]
//	fleetwatch simulate           - Serve a simulated fleet for development
//	fleetwatch doctor             - Check config, source, and preferences
//	fleetwatch version
//	fleetwatch completion <shell>
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) live on the root command.
// Configuration is loaded lazily by the commands that need it, so
// completion and version work without a config file.
//
// # Machine Output
//
// snapshot, doctor, and prefs show accept --output json, which wraps results in a
// JSONEnvelope. Failures in that mode are written as an envelope too, with
// an error code derived from the structured error.
package cli
