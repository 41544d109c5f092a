// Package ui provides terminal UI components for the teensysecure CLI.
//
// This package uses Lipgloss for the "run once and exit" output of the
// commands and Bubble Tea for the one interactive screen, the live output
// of key generation.
//
// # Components
//
//   - Header: command banner showing the operation and the target board
//   - Result: success, failure, warning and info boxes
//   - ChooseAction: an info box followed by a numbered action prompt
//   - TerminalModel: a scrolling view of process output with a spinner
//     while the process runs
//
// Details inside boxes are ordered slices, so output is stable between runs.
//
// # Usage Pattern
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Verify Sketch", "teensysecure verify-sketch",
//	    ui.Detail{Key: "Board", Value: "teensy:avr:teensy41"},
//	)
//	p.PrintSuccess("Sketch folder created",
//	    ui.Detail{Key: "Folder", Value: dir},
//	)
//
// # Logging Integration
//
// zap logging is silent unless TEENSYSECURE_LOG_LEVEL is set, so the boxes
// are the only output by default.
package ui
