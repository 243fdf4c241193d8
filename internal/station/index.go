package station

// Composite pollutant index on the CPCB AQI scale. Each pollutant maps to a
// sub-index through linear interpolation over its breakpoint table; the
// composite is the worst sub-index among the pollutants the reading carries.

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

var pm25Breakpoints = []breakpoint{
	{0, 30, 0, 50},
	{31, 60, 51, 100},
	{61, 90, 101, 200},
	{91, 120, 201, 300},
	{121, 250, 301, 400},
	{251, 500, 401, 500},
}

var pm10Breakpoints = []breakpoint{
	{0, 50, 0, 50},
	{51, 100, 51, 100},
	{101, 250, 101, 200},
	{251, 350, 201, 300},
	{351, 430, 301, 400},
	{431, 600, 401, 500},
}

var no2Breakpoints = []breakpoint{
	{0, 40, 0, 50},
	{41, 80, 51, 100},
	{81, 180, 101, 200},
	{181, 280, 201, 300},
	{281, 400, 301, 400},
	{401, 800, 401, 500},
}

var so2Breakpoints = []breakpoint{
	{0, 40, 0, 50},
	{41, 80, 51, 100},
	{81, 380, 101, 200},
	{381, 800, 201, 300},
	{801, 1600, 301, 400},
	{1601, 2600, 401, 500},
}

var o3Breakpoints = []breakpoint{
	{0, 50, 0, 50},
	{51, 100, 51, 100},
	{101, 168, 101, 200},
	{169, 208, 201, 300},
	{209, 748, 301, 400},
	{749, 1000, 401, 500},
}

var coBreakpoints = []breakpoint{
	{0, 1, 0, 50},
	{1.1, 2, 51, 100},
	{2.1, 10, 101, 200},
	{10.1, 17, 201, 300},
	{17.1, 34, 301, 400},
	{34.1, 50, 401, 500},
}

func subIndex(c float64, table []breakpoint) float64 {
	if c < 0 {
		return 0
	}
	for _, bp := range table {
		if c <= bp.cHigh {
			if bp.cHigh == bp.cLow {
				return bp.iHigh
			}
			return bp.iLow + (c-bp.cLow)*(bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)
		}
	}
	last := table[len(table)-1]
	return last.iHigh
}

// ComputeIndex derives the composite pollutant index for a reading.
// Returns nil when the reading carries no pollutant values at all.
func ComputeIndex(r *Reading) *float64 {
	type entry struct {
		value *float64
		table []breakpoint
	}
	entries := []entry{
		{r.PM25, pm25Breakpoints},
		{r.PM10, pm10Breakpoints},
		{r.NO2, no2Breakpoints},
		{r.SO2, so2Breakpoints},
		{r.O3, o3Breakpoints},
		{r.CO, coBreakpoints},
	}

	worst := -1.0
	for _, e := range entries {
		if e.value == nil {
			continue
		}
		if si := subIndex(*e.value, e.table); si > worst {
			worst = si
		}
	}
	if worst < 0 {
		return nil
	}
	return &worst
}
