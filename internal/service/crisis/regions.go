package crisis

// Helpline is a named support line.
type Helpline struct {
	Name   string
	Number string
}

// Region holds the emergency contacts shown for one country.
type Region struct {
	Code      string
	Name      string
	Emergency string
	// EmergencyNote is appended to the emergency number, e.g. the service name.
	EmergencyNote string
	Helplines     []Helpline
	// Aliases are extra lower-case names that select this region.
	Aliases []string
}

// DefaultRegionCode is used when neither the request nor the configuration names a known region.
const DefaultRegionCode = "LK"

var regions = []Region{
	{
		Code:          "LK",
		Name:          "Sri Lanka",
		Emergency:     "1990",
		EmergencyNote: "Suwaseriya ambulance",
		Helplines: []Helpline{
			{Name: "National Mental Health Helpline", Number: "1926"},
			{Name: "CCCline", Number: "1333"},
			{Name: "Sumithrayo", Number: "+94 11 2696666"},
		},
		Aliases: []string{"srilanka", "lka"},
	},
	{
		Code:      "US",
		Name:      "United States",
		Emergency: "911",
		Helplines: []Helpline{
			{Name: "988 Suicide & Crisis Lifeline", Number: "988"},
			{Name: "Crisis Text Line", Number: "text HOME to 741741"},
		},
		Aliases: []string{"usa", "united states of america", "america"},
	},
	{
		Code:      "GB",
		Name:      "United Kingdom",
		Emergency: "999",
		Helplines: []Helpline{
			{Name: "Samaritans", Number: "116 123"},
			{Name: "Shout", Number: "text SHOUT to 85258"},
		},
		Aliases: []string{"uk", "gbr", "great britain", "england", "scotland", "wales", "northern ireland"},
	},
	{
		Code:      "IN",
		Name:      "India",
		Emergency: "112",
		Helplines: []Helpline{
			{Name: "Tele-MANAS", Number: "14416"},
			{Name: "KIRAN", Number: "1800-599-0019"},
		},
		Aliases: []string{"ind", "bharat"},
	},
	{
		Code:      "AU",
		Name:      "Australia",
		Emergency: "000",
		Helplines: []Helpline{
			{Name: "Lifeline", Number: "13 11 14"},
			{Name: "Beyond Blue", Number: "1300 22 4636"},
		},
		Aliases: []string{"aus"},
	},
}

// Regions returns a copy of the built-in region directory.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}
