package domain

// Outcome is the terminal result of one invocation, reported exactly once.
type Outcome struct {
	// Path is the local destination of the retrieved artifact on success.
	Path string `json:"path,omitempty"`

	// Artifact is the remote name the service assigned to the output file.
	Artifact string `json:"artifact,omitempty"`

	// ErrorKind and Detail describe the failure when Path is empty.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Detail    string    `json:"detail,omitempty"`

	// Trace is the ordered list of dialogue states the session visited,
	// kept for diagnostics. Identical inputs against a deterministic
	// service yield identical traces.
	Trace []string `json:"trace,omitempty"`
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.ErrorKind != ""
}
