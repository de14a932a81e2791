/*
Package protocol defines the messages exchanged between a terminalwire server and the client that executes its commands on a user's machine, and the Adapter that moves them over a transport.

Every message carries an "event" discriminator. There are three events:

  - "initialization" is sent once by the client after connecting. It carries the protocol version, the entitlement the client enforces, and the program name and arguments.
  - "resource" messages address a named resource on the other side. Requests carry an action ("command" or "notify"), a command name, and parameters. Commands may carry an id; the response to a command carries a status ("success" or "failure"), a response value, and the same id.
  - "exit" terminates the program with the given integer status.

Notifications never produce a response. A failure response echoes the command and parameters that failed.

The byte encoding of a message is chosen by a Codec. CBOR is the default; JSON is available for debugging.
*/
package protocol
