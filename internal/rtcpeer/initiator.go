package rtcpeer

// idHash sums the byte values of an id. It only needs determinism and
// rough uniformity: both sides compute it over both ids and reach the same
// verdict without an extra signaling round-trip. It is a coordination
// heuristic, never a trust decision.
func idHash(id string) int {
	sum := 0
	for _, b := range []byte(id) {
		sum += int(b)
	}
	return sum
}

// ShouldInitiate reports whether the local side creates the WebRTC offer.
// The side with the strictly greater hash initiates; on the rare equal-sum
// collision the lexicographically greater id does, so exactly one side
// offers for any pair of distinct ids.
func ShouldInitiate(selfID, partnerID string) bool {
	ours, theirs := idHash(selfID), idHash(partnerID)
	if ours != theirs {
		return ours > theirs
	}
	return selfID > partnerID
}
