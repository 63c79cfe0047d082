package domain

import "fmt"

// Request holds the caller-supplied parameters of one ephemeris request.
// All values are opaque strings passed to the remote service verbatim;
// the engine performs no numeric reformatting or unit conversion.
// A Request is immutable for the lifetime of its session.
type Request struct {
	// Object is the free-text name of the body, also used to derive the
	// default destination file name.
	Object string `json:"object" yaml:"object"`

	// Elements is the orbital-element specification string. Its internal
	// format is opaque to the engine.
	Elements string `json:"elements" yaml:"elements"`

	// Center is the coordinate center (observer location) string.
	Center string `json:"center" yaml:"center"`

	// Start and Stop bound the requested time span.
	Start string `json:"start" yaml:"start"`
	Stop  string `json:"stop" yaml:"stop"`

	// Step is the output interval string (e.g. "1d", "10m").
	Step string `json:"step" yaml:"step"`

	// Quantities is the comma-separated list of requested table quantities.
	Quantities string `json:"quantities" yaml:"quantities"`
}

// Validate checks that the fields the dialogue cannot proceed without are set.
func (r Request) Validate() error {
	switch {
	case r.Object == "":
		return fmt.Errorf("object name is required")
	case r.Elements == "":
		return fmt.Errorf("element specification is required")
	case r.Center == "":
		return fmt.Errorf("coordinate center is required")
	case r.Start == "" || r.Stop == "":
		return fmt.Errorf("start and stop times are required")
	case r.Step == "":
		return fmt.Errorf("step size is required")
	}
	return nil
}

// DefaultDest derives the default local destination path from the object name.
func (r Request) DefaultDest() string {
	return r.Object + ".txt"
}
