package dialogue

import "github.com/aretw0/horizons/pkg/expect"

// Reply tokens of the dialogue. Values are sent verbatim; the service is a
// line-oriented text protocol with no framing.
const (
	cmdStartup   = ""      // bare return past the connection banner
	cmdPage      = "PAGE"  // disable output paging for the session
	cmdNewCase   = ";"     // enter element-input mode for a new request
	cmdFrame     = "J2000" // reference epoch for the input elements
	cmdEphemeris = "E"     // elements-based ephemeris
	cmdObserve   = "o"     // observer table
	cmdConfirm   = "y"
	cmdDecline   = "n"
	cmdAccept    = "y"
	cmdNewFormat = "n" // selector for a non-default layout at the format prompt
	cmdGenerate  = "F" // write the output to the transfer area
	cmdExit      = "x"
)

// Prompt and error patterns, grouped by the state that owns them. Rule
// order within a wait is significant: the first match wins.
var (
	promptBanner = expect.Literal("JPL Horizons")
	promptMain   = expect.Pattern(`Horizons>`)

	// The element-input prompt is only recognizable by its trailing colon.
	promptAnyField = expect.Pattern(`:\s*$`)

	// Error rules consume their whole line so the diagnostic text after
	// the marker lands in the reported detail.
	ruleInputError      = expect.Pattern(`INPUT ERROR[^\n]*`)
	ruleGenericError    = expect.Pattern(`Error[^\n]*`)
	promptEclipticFrame = expect.Pattern(`(?i)ecliptic frame`)

	promptObjectName = expect.Pattern(`(?i)name of object`)
	promptMainMenu   = expect.Pattern(`\[E\]phemeris`)
	promptTableType  = expect.Pattern(`\[o,e,v,\?\]`)
	promptCenter     = expect.Pattern(`(?i)coordinate center`)

	ruleCannotFindCenter = expect.Pattern(`Cannot find central body[^\n]*`)
	ruleMultipleMatches  = expect.Pattern(`(?i)multiple matches[^\n]*`)
	ruleUniqueSelection  = expect.Pattern(`(?i)make unique selection[^\n]*`)
	promptConfirmCenter  = expect.Pattern(`(?i)confirm selected station`)
	promptStartDate      = expect.Pattern(`(?i)starting\s+ut`)

	ruleCannotInterpret = expect.Pattern(`(?i)cannot interpret[^\n]*`)
	ruleNoEphemeris     = expect.Pattern(`(?i)no ephemeris[^\n]*`)
	promptStopDate      = expect.Pattern(`(?i)ending\s+ut`)
	promptStepSize      = expect.Pattern(`(?i)output interval`)

	ruleUnknownUnits    = expect.Pattern(`(?i)unknown units[^\n]*`)
	ruleProjectedOutput = expect.Pattern(`(?i)projected output length[^\n]*`)
	promptAcceptDefault = expect.Pattern(`(?i)accept default output`)

	// Settings-loop prompts consume through the trailing colon so the
	// bracketed default never lingers in the buffer and shadows the
	// fallback rule on the next wait.
	promptQuantities    = expect.Pattern(`(?i)select table quantities[^\n]*:\s*$`)
	ruleUnknownQuantity = expect.Pattern(`(?i)unknown quantity[^\n]*`)
	ruleMustSpecify     = expect.Pattern(`(?i)must specify[^\n]*`)
	promptFormatSelect  = expect.Pattern(`(?i)output table format[^\n]*:\s*$`)

	ruleBadSetting = expect.Pattern(`(?i)(?:cannot read|unacceptable)[^\n]*`)

	promptTerminalSelect = expect.Pattern(`\[A\]gain.*\[F\]tp`)

	// Any well-formed bracketed-default prompt the catalog does not
	// recognize. Must stay last in the settings rule set.
	promptBracketDefault = expect.Pattern(`\[[^\]\n]*\][^:\n]*:\s*$`)

	ruleArtifactName = expect.Pattern(`File name\s*:\s*(\S+)\s+\((?:plain-text|binary)\)`)
)
