// Package console hosts the Teensy security commands on the command line.
//
// Host implements extension.Host with lipgloss boxes for messages, a numbered
// prompt for actions and a Bubble Tea view for the "New Key" terminal.
// BoardSource stands in for the IDE's board selection: the FQBN comes from a
// flag and build properties from arduino-cli, a properties file or flags.
package console
