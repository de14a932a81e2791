/*
Package entitlement decides which local capabilities a remote server may use.

A Policy is resolved from the server's authority when the client connects. It owns three independent permission sets:

  - Paths: glob patterns with a maximum file mode. A path is permitted when its absolute form matches a pattern. A mode is permitted when, for each of the owner, group, and other classes, the requested bits are a subset of the bits the matching pattern grants.
  - Schemes: URL schemes the server may open in the user's browser.
  - EnvironmentVariables: variable names the server may read.

Every standard policy grants the authority's own storage directory at mode 0o600, the http and https schemes, and the TERMINALWIRE_HOME variable. The root authority (terminalwire.com) additionally manages the terminalwire home directory itself, the user's shell initialization files, and may create executable binary stubs.

The client is the trust boundary: the serialized policy is sent to the server for display only.
*/
package entitlement
