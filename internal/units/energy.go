package units

// WattSecondsPerKWh is the number of joules (watt-seconds) in one kWh.
const WattSecondsPerKWh = 3_600_000.0

// WattSecondsToKWh converts an energy accumulation in watt-seconds to kWh.
func WattSecondsToKWh(ws float64) float64 {
	return ws / WattSecondsPerKWh
}

// WattsToKW converts instantaneous power in watts to kilowatts.
func WattsToKW(w float64) float64 {
	return w / 1000
}
