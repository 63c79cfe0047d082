package domain

// Overrides holds optional non-default values for the service's
// output-formatting settings. An empty field means "accept the service
// default" for that setting. The catalog is populated once before the
// dialogue starts and is read-only afterwards.
//
// Field names mirror the labels the service uses in its settings prompts.
type Overrides struct {
	RefSystem          string `json:"ref_system,omitempty" yaml:"ref_system" mapstructure:"ref_system"`
	TimeZone           string `json:"time_zone,omitempty" yaml:"time_zone" mapstructure:"time_zone"`
	CalFormat          string `json:"cal_format,omitempty" yaml:"cal_format" mapstructure:"cal_format"`
	TimeDigits         string `json:"time_digits,omitempty" yaml:"time_digits" mapstructure:"time_digits"`
	AngFormat          string `json:"ang_format,omitempty" yaml:"ang_format" mapstructure:"ang_format"`
	ExtraPrecision     string `json:"extra_prec,omitempty" yaml:"extra_prec" mapstructure:"extra_prec"`
	Apparent           string `json:"apparent,omitempty" yaml:"apparent" mapstructure:"apparent"`
	RangeUnits         string `json:"range_units,omitempty" yaml:"range_units" mapstructure:"range_units"`
	SuppressRangeRate  string `json:"suppress_range_rate,omitempty" yaml:"suppress_range_rate" mapstructure:"suppress_range_rate"`
	ElevationCutoff    string `json:"elev_cutoff,omitempty" yaml:"elev_cutoff" mapstructure:"elev_cutoff"`
	AirmassCutoff      string `json:"airmass,omitempty" yaml:"airmass" mapstructure:"airmass"`
	RiseTransitSetOnly string `json:"rts_only,omitempty" yaml:"rts_only" mapstructure:"rts_only"`
	SkipDaylight       string `json:"skip_daylight,omitempty" yaml:"skip_daylight" mapstructure:"skip_daylight"`
	SolarElongation    string `json:"solar_elong,omitempty" yaml:"solar_elong" mapstructure:"solar_elong"`
	HourAngleCutoff    string `json:"lha_cutoff,omitempty" yaml:"lha_cutoff" mapstructure:"lha_cutoff"`
	AngularRateCutoff  string `json:"ang_rate_cutoff,omitempty" yaml:"ang_rate_cutoff" mapstructure:"ang_rate_cutoff"`
	CSVFormat          string `json:"csv,omitempty" yaml:"csv" mapstructure:"csv"`
}

// Values returns the catalog as an ordered list of (label, value) pairs.
// The order matches the service's settings walkthrough, but the dialogue
// must not depend on it: prompts are matched by label, not position.
func (o Overrides) Values() []OverrideValue {
	return []OverrideValue{
		{"ref_system", o.RefSystem},
		{"time_zone", o.TimeZone},
		{"cal_format", o.CalFormat},
		{"time_digits", o.TimeDigits},
		{"ang_format", o.AngFormat},
		{"extra_prec", o.ExtraPrecision},
		{"apparent", o.Apparent},
		{"range_units", o.RangeUnits},
		{"suppress_range_rate", o.SuppressRangeRate},
		{"elev_cutoff", o.ElevationCutoff},
		{"airmass", o.AirmassCutoff},
		{"rts_only", o.RiseTransitSetOnly},
		{"skip_daylight", o.SkipDaylight},
		{"solar_elong", o.SolarElongation},
		{"lha_cutoff", o.HourAngleCutoff},
		{"ang_rate_cutoff", o.AngularRateCutoff},
		{"csv", o.CSVFormat},
	}
}

// OverrideValue is one labeled entry of the override catalog.
type OverrideValue struct {
	Label string
	Value string
}

// Any reports whether any override differs from the service default.
// When false, the settings walkthrough is skipped wholesale and the
// service defaults are accepted.
func (o Overrides) Any() bool {
	for _, v := range o.Values() {
		if v.Value != "" {
			return true
		}
	}
	return false
}
