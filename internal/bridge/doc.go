// Package bridge serves the Teensy security commands to an IDE over a
// loopback WebSocket.
//
// Each connection gets its own extension.Session; the connection is that
// session's Host. Host calls become JSON text frames and the IDE's answers
// come back the same way. The IDE side only forwards events and renders.
//
// # Protocol
//
// Every frame is a JSON object with a "type". The IDE sends:
//
//	activate        {fqbn, details}   initial board, once per window
//	fqbn            {fqbn}            board selection changed ("" for none)
//	boardDetails    {details}         details resolved, null when not installed
//	command         {id, command}     run a teensysecurity.* command
//	action          {id, action}      answer to a showInfo with actions
//	terminal.open   {terminal}        the terminal is visible; flush output
//	terminal.close  {terminal}        the terminal was closed
//
// The bridge sends hello first, then any of setContext, showError, showInfo,
// openFolder, openFile, terminal.create, terminal.write and commandResult.
// Board events are handled in arrival order on the read loop. Commands run
// on their own goroutine, so a command waiting for an action does not hold
// up board events. One writer goroutine owns the socket.
//
// # Usage Example
//
//	srv, err := bridge.New(&bridge.Config{Listen: "127.0.0.1:7755"})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package bridge
