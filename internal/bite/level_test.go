package bite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want Level
	}{
		{5.0, LevelBiting},
		{4.1, LevelBiting},
		{4.09, LevelModerate},
		{3.1, LevelModerate},
		{3.0, LevelWeak},
		{2.1, LevelWeak},
		{2.0, LevelNone},
		{1.0, LevelNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.avg), "avg %v", tt.avg)
	}
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "Клюёт!", LevelBiting.Label(LocaleRU))
	assert.Equal(t, "Клёв средний", LevelModerate.Label(LocaleRU))
	assert.Equal(t, "Клёв слабый", LevelWeak.Label(LocaleRU))
	assert.Equal(t, "Не клюёт", LevelNone.Label(LocaleRU))
	assert.Equal(t, "Biting!", LevelBiting.Label(LocaleEN))
	assert.Equal(t, "Не клюёт", LevelNone.Label(Locale("")))
}

func TestChartMeta(t *testing.T) {
	assert.Equal(t, "Динамика за неделю", LocaleRU.ChartMeta(PeriodWeek).Title)
	assert.Equal(t, "Динамика за год", LocaleRU.ChartMeta(PeriodYear).Title)
	assert.Equal(t, "Week", LocaleEN.ChartMeta(PeriodYear).XLabel)
}
