package review

// PresetDefault returns the standard customer-service rubric.
func PresetDefault() Rubric {
	return Rubric{
		Name:        "default",
		Description: "Standard rubric for published customer-service responses.",
		ForbiddenPhrases: []string{
			"I don't care",
			"that's not my problem",
			"you're wrong",
			"stupid",
			"idiot",
		},
		ForbiddenPromises: []string{
			"we guarantee",
			"100% refund",
			"definitely will",
			"I promise",
			"absolutely certain",
		},
		ForbiddenTones: []string{
			"dismissive",
			"condescending",
			"aggressive",
			"sarcastic",
		},
		RequiredTone: "professional and friendly",
		DisclaimerTopics: []string{
			"refund",
			"warranty",
			"legal",
			"guarantee",
		},
		MinLength: 20,
		MaxLength: 1500,
	}
}

// PresetStrict returns a tightened rubric for regulated or high-risk brands:
// shorter answers, broader forbidden-promise coverage.
func PresetStrict() Rubric {
	r := PresetDefault()
	r.Name = "strict"
	r.Description = "Tightened rubric for regulated brands. Shorter answers, no commitments."
	r.ForbiddenPromises = append(r.ForbiddenPromises,
		"you are entitled to",
		"we will always",
		"no questions asked",
	)
	r.MaxLength = 900
	return r
}

// Presets returns all built-in rubrics keyed by name.
func Presets() map[string]Rubric {
	return map[string]Rubric{
		"default": PresetDefault(),
		"strict":  PresetStrict(),
	}
}
