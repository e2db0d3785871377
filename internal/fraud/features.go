package fraud

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// Location is a geographic point in degrees.
type Location struct {
	Lat float64
	Lon float64
}

// FeatureInput carries everything the feature builder needs. All fields are
// read before any ledger mutation; MedianBefore is the running median prior
// to inserting Amount.
type FeatureInput struct {
	Home               Location
	LastWithdrawal     *Location // nil when the account has no debit history
	Current            Location
	Amount             float64
	MedianBefore       float64
	RepeatCounterparty bool
	ChipUsed           bool
}

// Features computes the fixed-order feature vector:
//
//	[distance_from_home_km, distance_from_last_withdrawal_km,
//	 ratio_to_median_amount, repeat_counterparty_flag, chip_used_flag]
//
// Deterministic, no side effects.
func Features(in FeatureInput) []float64 {
	distanceFromHome := Haversine(in.Home, in.Current)

	distanceFromLast := 0.0
	if in.LastWithdrawal != nil {
		distanceFromLast = Haversine(*in.LastWithdrawal, in.Current)
	}

	// An account with no history has median 0; the first transfer is its own
	// baseline.
	ratio := 1.0
	if in.MedianBefore != 0 {
		ratio = in.Amount / in.MedianBefore
	}

	return []float64{
		distanceFromHome,
		distanceFromLast,
		ratio,
		flag(in.RepeatCounterparty),
		flag(in.ChipUsed),
	}
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(p1, p2 Location) float64 {
	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLat := toRadians(p2.Lat - p1.Lat)
	dLon := toRadians(p2.Lon - p1.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func flag(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
