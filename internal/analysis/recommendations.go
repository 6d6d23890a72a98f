package analysis

// conditionRecommendations maps raw condition labels to their standing
// guidance. It backstops detection responses that carry a bare label; the
// generic DefaultRecommendation covers labels not listed here.
var conditionRecommendations = map[string]string{
	"actinic_keratosis":          "Protect skin from the sun, use prescribed creams, and visit a dermatologist regularly.",
	"atopic_dermatitis":          "Use mild skincare products, avoid allergens, and keep skin hydrated.",
	"benign_keratosis":           "Typically harmless. Consult a doctor if they become irritated.",
	"dermatofibroma":             "Usually harmless, but if it changes or becomes painful, see a dermatologist.",
	"melanocytic_nevus":          "Monitor for any changes in shape, color, or size.",
	"melanoma":                   "Consult a dermatologist immediately. Early detection is key!",
	"squamous_cell_carcinoma":    "Seek medical treatment immediately. Early treatment is crucial.",
	"tinea_ringworm_candidiasis": "Use antifungal creams and keep the area dry.",
	"vascular_lesion":            "Consult a dermatologist for appropriate treatment options.",
}

// RecommendationFor returns the guidance for a raw condition label, falling
// back to DefaultRecommendation for unknown labels.
func RecommendationFor(condition string) string {
	if r, ok := conditionRecommendations[condition]; ok {
		return r
	}
	return DefaultRecommendation
}
