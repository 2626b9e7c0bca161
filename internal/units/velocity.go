package units

// Speed unit constants
const (
	KMPH = "kmph"
	MPS  = "mps"
)

// SecondsPerHour converts elapsed seconds to hours.
const SecondsPerHour = 3600.0

// RawSpeedToKMPH converts a raw drivetrain speed reading (e.g. motor rpm) to
// vehicle speed in km/h using a fixed gear-ratio constant. Direction is
// discarded: the magnitude is returned.
func RawSpeedToKMPH(raw, gearRatio float64) float64 {
	if raw < 0 {
		raw = -raw
	}
	return raw * gearRatio
}

// KMPHToMPS converts km/h to m/s.
func KMPHToMPS(kmph float64) float64 {
	return kmph / 3.6
}
