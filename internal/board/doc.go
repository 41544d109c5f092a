// Package board models the board identity reported by the IDE host.
//
// Two independent events describe the selected board: the FQBN, which the
// host reports as soon as the user picks a board, and the board details,
// which only arrive once the platform is installed and resolved. Details
// carry the build properties, a flat key/value listing in which the installed
// tool directories appear (for example runtime.tools.teensy-tools.path).
//
// Build properties are kept as an ordered slice rather than a map. Tool
// lookups take the first key that matches a prefix, so the order the host
// reported must survive JSON decoding and file parsing.
package board
