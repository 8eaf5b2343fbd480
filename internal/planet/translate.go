package planet

import "strings"

// LegacyTypeTranslations maps the French planet type labels stored by the
// first version of the game to their current values. A fresh map is returned
// on every call.
func LegacyTypeTranslations() map[string]PlanetType {
	return map[string]PlanetType{
		"tellurique":     PlanetTypeTerrestrial,
		"terrestre":      PlanetTypeTerrestrial,
		"océanique":      PlanetTypeTerrestrial,
		"oceanique":      PlanetTypeTerrestrial,
		"gazeuse":        PlanetTypeGasGiant,
		"géante gazeuse": PlanetTypeGasGiant,
		"geante gazeuse": PlanetTypeGasGiant,
		"glacée":         PlanetTypeIce,
		"glacee":         PlanetTypeIce,
		"glace":          PlanetTypeIce,
		"volcanique":     PlanetTypeVolcanic,
		"désertique":     PlanetTypeBarren,
		"desertique":     PlanetTypeBarren,
		"aride":          PlanetTypeBarren,
		"stérile":        PlanetTypeBarren,
		"sterile":        PlanetTypeBarren,
		"rocheuse":       PlanetTypeBarren,
	}
}

// TranslateType resolves raw against table. Values that are already valid
// types are returned unchanged; unknown labels report false.
func TranslateType(table map[string]PlanetType, raw string) (PlanetType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", " ")

	if t := PlanetType(strings.ReplaceAll(normalized, " ", "_")); t.IsValid() {
		return t, true
	}

	t, ok := table[normalized]
	return t, ok
}
