// Package availability tracks whether the Teensy security commands can run.
//
// The host cannot be asked whether a platform is installed. It only reports
// the FQBN when the user picks a board and, later, board details once
// arduino-cli resolved that board. A Teensy FQBN followed by Teensy details
// means the platform is installed:
//
//	Unset --select(teensy)--> Selected --details(teensy)--> Installed
//
// Selecting another vendor's board, or details resolving for one, goes back
// to Unset. The state is published as teensysecurity.state and whether the key
// file exists as teensysecurity.hasKeyFile.
package availability
