package normalize

// IdentityKey derives the canonical dedup key for a plant+variety pair.
// It is a pure function of the normalized text: two independent
// extractions of the same plant and variety collide to the same key no
// matter which vendor or pass produced them.
//
// Returns ("", false) when either input is a generic trap or the plant
// type is empty; such names must never become a key.
func IdentityKey(plantType, variety string) (string, bool) {
	pt := foldSpace(plantType)
	v := foldSpace(variety)

	if pt == "" {
		return "", false
	}
	if IsGenericTrap(pt) || IsGenericTrap(v) {
		return "", false
	}
	return pt + "::" + v, true
}
