package utils

// TrustLevel names the band a trust score falls into, for dashboards.
func TrustLevel(score int) (name string, icon string) {
	switch {
	case score >= 1000:
		return "Pillar", "🏛️"
	case score >= 200:
		return "Trusted", "🌳"
	case score >= 50:
		return "Established", "🌿"
	case score >= 10:
		return "Participant", "🌾"
	default:
		return "Newcomer", "🌱"
	}
}
