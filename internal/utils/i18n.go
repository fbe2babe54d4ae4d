package utils

// Server-side strings only: health text and report labels.

var SupportedLocales = []string{"en", "fr"}

var translations = map[string]map[string]string{
	"en": {
		"health.ok":                 "ok",
		"label.Met":                 "Met",
		"label.Partially Met":       "Partially Met",
		"label.Not Met":             "Not Met",
		"label.N/A":                 "N/A",
		"label.No Response":         "No Response",
		"status.SAVED":              "Draft",
		"status.SUBMITTED":          "Submitted",
		"status.RETURNED_FOR_FIXES": "Returned for fixes",
	},
	"fr": {
		"health.ok":                 "ok",
		"label.Met":                 "Conforme",
		"label.Partially Met":       "Partiellement conforme",
		"label.Not Met":             "Non conforme",
		"label.N/A":                 "Sans objet",
		"label.No Response":         "Sans réponse",
		"status.SAVED":              "Brouillon",
		"status.SUBMITTED":          "Soumis",
		"status.RETURNED_FOR_FIXES": "Renvoyé pour corrections",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}

// Label localizes a scoring label such as "Partially Met".
func Label(locale, label string) string {
	v := T(locale, "label."+label)
	if v == "label."+label {
		return label
	}
	return v
}
