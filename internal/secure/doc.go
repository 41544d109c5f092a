// Package secure drives the teensy_secure helper that ships with the Teensy
// platform.
//
// All cryptographic work happens inside teensy_secure; this package only
// finds the binary, runs its subcommands and interprets exit codes and
// stdout:
//
//	teensy_secure keyfile               print the key.pem path in use
//	teensy_secure keygen <key.pem>      create a key (streams progress)
//	teensy_secure fuseino <key.pem>     print FuseWrite.ino
//	teensy_secure testdataino <key.pem> print testdata.ino
//	teensy_secure verifyino <key.pem>   print VerifySecure.ino
//	teensy_secure lockino <key.pem>     print LockSecureMode.ino
//
// # Locating the binary
//
// The binary lives in the Teensy tools directory, which the IDE reports as a
// build property (runtime.tools.teensy-tools.path and friends) once the
// platform is installed:
//
//	tc := secure.NewToolchain("", "", secure.NewExecutor(logger), logger)
//	program, err := tc.ProgramPath(details)
//	keyfile, err := tc.KeyFile(ctx, program)
//
// # Errors
//
// Failures are returned as typed errors so callers can pick the message to
// show with errors.As:
//
//   - ToolNotFoundError: no tools directory in the build properties
//   - ToolOutdatedError: keyfile subcommand exits nonzero (Teensy < 1.60.0)
//   - KeyFileMissingError: the reported key.pem does not exist
//   - ProcessSpawnError, ProcessExitError, EmptyOutputError: invocation failures
//
// # Streaming
//
// Keygen returns a *Process right after the child starts. Output is forwarded
// chunk by chunk; the child keeps running after the caller returns and is
// reaped by the handle's own goroutine.
package secure
