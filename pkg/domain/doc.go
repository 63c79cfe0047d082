/*
Package domain contains the core domain models for the Horizons automation engine.

It defines the caller-supplied request, the override catalog for the service's
output-formatting settings, the error taxonomy shared by the dialogue and
transfer sub-sessions, and the terminal outcome of an invocation. This package
is kept pure and free of external dependencies like I/O or networking.

# Key Entities

  - Request: The immutable parameters of one ephemeris request.
  - Overrides: Optional non-default values for the service's output settings.
  - Error / ErrorKind: The classified terminal failure of a session.
  - Outcome: The single reported result of an invocation.
*/
package domain
