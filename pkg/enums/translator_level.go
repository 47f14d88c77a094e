package enums

// TranslatorLevel describes a translator's qualification tier. The strings
// match the values stored in user_meta.translator_level.
type TranslatorLevel string

const (
	LevelCertified       TranslatorLevel = "Certified"
	LevelCertifiedLaw    TranslatorLevel = "Certified with specialisation in law"
	LevelCertifiedHealth TranslatorLevel = "Certified with specialisation in health care"
	LevelLayman          TranslatorLevel = "Layman"
	LevelReadCourses     TranslatorLevel = "Read Translation courses"
)

var validTranslatorLevels = []TranslatorLevel{
	LevelCertified,
	LevelCertifiedLaw,
	LevelCertifiedHealth,
	LevelLayman,
	LevelReadCourses,
}

// AllTranslatorLevels returns every qualification tier, used when a booking
// carries no certification requirement.
func AllTranslatorLevels() []TranslatorLevel {
	levels := make([]TranslatorLevel, len(validTranslatorLevels))
	copy(levels, validTranslatorLevels)
	return levels
}

// IsValid reports whether the value matches the canonical level enum.
func (l TranslatorLevel) IsValid() bool {
	for _, candidate := range validTranslatorLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// LevelsForCertified expands a booking's certification requirement into the
// set of translator levels allowed to serve it. A nil requirement accepts
// every level.
func LevelsForCertified(certified *Certified) []TranslatorLevel {
	if certified == nil {
		return AllTranslatorLevels()
	}
	switch *certified {
	case CertifiedYes, CertifiedBoth:
		return []TranslatorLevel{LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth}
	case CertifiedLaw, CertifiedNLaw:
		return []TranslatorLevel{LevelCertifiedLaw}
	case CertifiedHealth, CertifiedNHealth:
		return []TranslatorLevel{LevelCertifiedHealth}
	default:
		return []TranslatorLevel{LevelLayman, LevelReadCourses}
	}
}
