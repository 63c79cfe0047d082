package dialogue

import (
	"github.com/aretw0/horizons/pkg/domain"
	"github.com/aretw0/horizons/pkg/expect"
)

// overridePrompt binds one recognized settings prompt to its catalog value.
// The settings walkthrough matches prompts by label, so the service may
// present them in any order without desynchronizing the loop.
type overridePrompt struct {
	label string
	rule  expect.Rule
	value func(domain.Overrides) string
}

// settingRule anchors a label to a full prompt line so the match consumes
// the bracketed default and the trailing colon along with the label.
func settingRule(label string) expect.Rule {
	return expect.Pattern(`(?i)` + label + `[^\n]*:\s*$`)
}

var overridePrompts = []overridePrompt{
	{"ref_system", settingRule(`reference frame`), func(o domain.Overrides) string { return o.RefSystem }},
	{"time_zone", settingRule(`time-zone`), func(o domain.Overrides) string { return o.TimeZone }},
	{"cal_format", settingRule(`ut time format`), func(o domain.Overrides) string { return o.CalFormat }},
	{"time_digits", settingRule(`time digits`), func(o domain.Overrides) string { return o.TimeDigits }},
	{"ang_format", settingRule(`r\.a\. format`), func(o domain.Overrides) string { return o.AngFormat }},
	{"extra_prec", settingRule(`high precision`), func(o domain.Overrides) string { return o.ExtraPrecision }},
	{"apparent", settingRule(`apparent`), func(o domain.Overrides) string { return o.Apparent }},
	{"range_units", settingRule(`range units`), func(o domain.Overrides) string { return o.RangeUnits }},
	{"suppress_range_rate", settingRule(`range-rate`), func(o domain.Overrides) string { return o.SuppressRangeRate }},
	{"elev_cutoff", settingRule(`minimum elevation`), func(o domain.Overrides) string { return o.ElevationCutoff }},
	{"airmass", settingRule(`air-?mass`), func(o domain.Overrides) string { return o.AirmassCutoff }},
	{"rts_only", settingRule(`rise-transit-set`), func(o domain.Overrides) string { return o.RiseTransitSetOnly }},
	{"skip_daylight", settingRule(`daylight`), func(o domain.Overrides) string { return o.SkipDaylight }},
	{"solar_elong", settingRule(`solar elongation`), func(o domain.Overrides) string { return o.SolarElongation }},
	{"lha_cutoff", settingRule(`hour angle`), func(o domain.Overrides) string { return o.HourAngleCutoff }},
	{"ang_rate_cutoff", settingRule(`angular rate`), func(o domain.Overrides) string { return o.AngularRateCutoff }},
	{"csv", settingRule(`csv format`), func(o domain.Overrides) string { return o.CSVFormat }},
}
