package bite

// Level is a coarse band over an average rating.
type Level string

const (
	LevelBiting   Level = "biting"
	LevelModerate Level = "moderate"
	LevelWeak     Level = "weak"
	LevelNone     Level = "none"
)

// LevelFor maps an average on the 1..5 scale to its band.
func LevelFor(avg float64) Level {
	switch {
	case avg >= 4.1:
		return LevelBiting
	case avg >= 3.1:
		return LevelModerate
	case avg >= 2.1:
		return LevelWeak
	default:
		return LevelNone
	}
}

var levelLabels = map[Locale]map[Level]string{
	LocaleRU: {
		LevelBiting:   "Клюёт!",
		LevelModerate: "Клёв средний",
		LevelWeak:     "Клёв слабый",
		LevelNone:     "Не клюёт",
	},
	LocaleEN: {
		LevelBiting:   "Biting!",
		LevelModerate: "Moderate bite",
		LevelWeak:     "Weak bite",
		LevelNone:     "Not biting",
	},
}

// Label returns the user-facing caption of the level.
func (lv Level) Label(l Locale) string {
	return levelLabels[ParseLocale(string(l))][lv]
}
