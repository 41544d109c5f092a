// Package extension implements the Teensy security commands on top of a Host.
//
// A Session receives the two board events the host fires (selection changed,
// details resolved), keeps the teensysecurity.* context keys up to date, and
// runs the five commands:
//
//	teensysecurity.createKey           Generate Key
//	teensysecurity.showKeyPath         Show Key Path
//	teensysecurity.fuseWriteSketch     Step 1, Fuse Write Sketch
//	teensysecurity.verifySketch        Step 2, Verify Sketch
//	teensysecurity.lockSecuritySketch  Step 3, Lock Security Sketch
//
// Each command resolves teensy_secure and the key file again on every call.
// The first missing precondition stops the command; the user sees a message
// for a missing or outdated toolchain and for a missing key file, every other
// failure is only logged.
//
// Two hosts exist: internal/console for the command line and internal/bridge
// for an IDE connected over a websocket.
package extension
