package template

import (
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const durationKey = "%d days, %d hours, %d minutes and %d seconds"

var durationCatalog = newDurationCatalog()

func newDurationCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	unit := func(arg int, one, other string) catalog.Message {
		return plural.Selectf(arg, "%d", plural.One, one, plural.Other, other)
	}

	_ = b.Set(language.English, durationKey,
		catalog.Var("d", unit(1, "day", "days")),
		catalog.Var("h", unit(2, "hour", "hours")),
		catalog.Var("m", unit(3, "minute", "minutes")),
		catalog.Var("s", unit(4, "second", "seconds")),
		catalog.String("%[1]d ${d}, %[2]d ${h}, %[3]d ${m} and %[4]d ${s}"))

	_ = b.Set(language.Spanish, durationKey,
		catalog.Var("d", unit(1, "día", "días")),
		catalog.Var("h", unit(2, "hora", "horas")),
		catalog.Var("m", unit(3, "minuto", "minutos")),
		catalog.Var("s", unit(4, "segundo", "segundos")),
		catalog.String("%[1]d ${d}, %[2]d ${h}, %[3]d ${m} y %[4]d ${s}"))

	return b
}

// FormatDuration spells out d in whole days, hours, minutes and seconds
func FormatDuration(lang Language, d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)

	p := message.NewPrinter(lang.Tag(), message.Catalog(durationCatalog))
	return p.Sprintf(durationKey,
		secs/86400,
		(secs%86400)/3600,
		(secs%3600)/60,
		secs%60)
}
