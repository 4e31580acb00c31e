package bite

import (
	"fmt"
	"time"
)

// Locale selects the language of bucket labels, chart titles and bite levels.
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
)

// ParseLocale falls back to Russian for anything it does not recognise.
func ParseLocale(s string) Locale {
	if Locale(s) == LocaleEN {
		return LocaleEN
	}
	return LocaleRU
}

// Short month names as they appear next to a day number, e.g. "15 окт.".
var ruShortMonths = [...]string{
	"янв.", "февр.", "мар.", "апр.", "мая", "июн.",
	"июл.", "авг.", "сент.", "окт.", "нояб.", "дек.",
}

func (l Locale) hourLabel(t time.Time) string {
	return fmt.Sprintf("%d:00", t.Hour())
}

func (l Locale) dayLabel(t time.Time) string {
	if l == LocaleEN {
		return t.Format("Jan 2")
	}
	return fmt.Sprintf("%d %s", t.Day(), ruShortMonths[t.Month()-1])
}

func (l Locale) weekLabel(n int) string {
	if l == LocaleEN {
		return fmt.Sprintf("Week %d", n)
	}
	return fmt.Sprintf("Нед %d", n)
}

// ChartMeta describes how a series for one period should be captioned.
type ChartMeta struct {
	Title  string `json:"title"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
}

var chartMeta = map[Locale]map[Period]ChartMeta{
	LocaleRU: {
		PeriodToday: {Title: "Динамика сегодня", XLabel: "Время", YLabel: "Клёв"},
		PeriodWeek:  {Title: "Динамика за неделю", XLabel: "Дата", YLabel: "Клёв"},
		PeriodMonth: {Title: "Динамика за месяц", XLabel: "Дата", YLabel: "Клёв"},
		PeriodYear:  {Title: "Динамика за год", XLabel: "Неделя", YLabel: "Клёв"},
	},
	LocaleEN: {
		PeriodToday: {Title: "Today", XLabel: "Time", YLabel: "Bite"},
		PeriodWeek:  {Title: "Past week", XLabel: "Date", YLabel: "Bite"},
		PeriodMonth: {Title: "Past month", XLabel: "Date", YLabel: "Bite"},
		PeriodYear:  {Title: "Past year", XLabel: "Week", YLabel: "Bite"},
	},
}

// ChartMeta returns the captions for period in this locale.
func (l Locale) ChartMeta(p Period) ChartMeta {
	return chartMeta[ParseLocale(string(l))][p]
}
