// Package horizons drives the interactive JPL Horizons telnet dialogue to
// produce an ephemeris table for a small body given its heliocentric
// osculating elements, and retrieves the generated table over anonymous
// FTP.
//
// The package automates the legacy line-oriented interface end to end:
// one call to Client.Fetch conducts the full prompt dialogue (elements,
// coordinate center, time span, step size, table quantities, optional
// output settings), asks the service to write the result to its transfer
// area, and downloads it to a local file.
//
//	client := horizons.New(horizons.WithEmail("you@example.com"))
//	res, err := client.Fetch(ctx, req, overrides, "")
//
// Failures are classified: every error returned by Fetch unwraps to a
// *domain.Error naming the failed dialogue state and the offending
// request field, so callers can distinguish a bad parameter from a dead
// service without parsing text.
package horizons
