package urls

// Documentation URLs shown by the CLI and the bridge status output.

// CodeSecurity is PJRC's guide to Teensy 4 code security: key generation,
// fuse writing, verification and locking.
const CodeSecurity = "https://www.pjrc.com/teensy/td_code_security.html"

// BoardsManager explains installing the Teensy platform through the
// Arduino IDE Boards Manager, which provides teensy_secure.
const BoardsManager = "https://www.pjrc.com/teensy/td_download.html"

// ArduinoCLI documents the arduino-cli board details command the console
// host can use to resolve build properties.
const ArduinoCLI = "https://arduino.github.io/arduino-cli/latest/commands/arduino-cli_board_details/"
