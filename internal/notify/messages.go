package notify

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"creatorhub/internal/core"
	"creatorhub/pkg/domain"
)

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

// entity labels, keyed "entity.<type>".
var labels = map[language.Tag]map[domain.EntityType]string{
	language.English: {
		domain.EntityCompany:    "company",
		domain.EntityTask:       "task",
		domain.EntityEvent:      "event",
		domain.EntityGoal:       "goal",
		domain.EntityGeneration: "generation",
		domain.EntityActivity:   "activity",
	},
	language.Spanish: {
		domain.EntityCompany:    "empresa",
		domain.EntityTask:       "tarea",
		domain.EntityEvent:      "evento",
		domain.EntityGoal:       "meta",
		domain.EntityGeneration: "generación",
		domain.EntityActivity:   "actividad",
	},
}

// Message formats take the entity label, then the name or count, then the error.
var messages = map[language.Tag]map[string]string{
	language.English: {
		"success.create":        "Created %[1]s %[2]q",
		"success.update":        "Updated %[1]s %[2]q",
		"success.delete":        "Deleted %[1]s %[2]q",
		"success.bulk_update":   "Updated %[2]d %[1]s items",
		"success.bulk_delete":   "Deleted %[2]d %[1]s items",
		"error.initialize":      "Could not load %[1]s items: %[3]v",
		"error.create":          "Could not create %[1]s %[2]q: %[3]v",
		"error.update":          "Could not update %[1]s %[2]q: %[3]v",
		"error.delete":          "Could not delete %[1]s %[2]q: %[3]v",
		"error.bulk_update":     "Could not update %[2]d %[1]s items: %[3]v",
		"error.bulk_delete":     "Could not delete %[2]d %[1]s items: %[3]v",
		"error.unauthenticated": "Sign in to create a %[1]s",
	},
	language.Spanish: {
		"success.create":        "Se creó %[1]s %[2]q",
		"success.update":        "Se actualizó %[1]s %[2]q",
		"success.delete":        "Se eliminó %[1]s %[2]q",
		"success.bulk_update":   "Se actualizaron %[2]d elementos de %[1]s",
		"success.bulk_delete":   "Se eliminaron %[2]d elementos de %[1]s",
		"error.initialize":      "No se pudo cargar %[1]s: %[3]v",
		"error.create":          "No se pudo crear %[1]s %[2]q: %[3]v",
		"error.update":          "No se pudo actualizar %[1]s %[2]q: %[3]v",
		"error.delete":          "No se pudo eliminar %[1]s %[2]q: %[3]v",
		"error.bulk_update":     "No se pudieron actualizar %[2]d elementos de %[1]s: %[3]v",
		"error.bulk_delete":     "No se pudieron eliminar %[2]d elementos de %[1]s: %[3]v",
		"error.unauthenticated": "Inicia sesión para crear %[1]s",
	},
}

var builder = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, set := range messages {
		for key, msg := range set {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("notify: catalog %s/%s: %v", tag, key, err))
			}
		}
	}
	for tag, set := range labels {
		for entity, label := range set {
			if err := b.SetString(tag, "entity."+string(entity), label); err != nil {
				panic(fmt.Sprintf("notify: catalog %s/%s: %v", tag, entity, err))
			}
		}
	}
	return b
}

// Localizer renders notifications into one display language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer picks the closest supported language for locale; unknown
// locales render in English.
func NewLocalizer(locale string) *Localizer {
	tag := language.English
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Language returns the tag messages are rendered in.
func (l *Localizer) Language() language.Tag { return l.tag }

// Render formats n as a toast message.
func (l *Localizer) Render(n core.Notification) string {
	label := l.printer.Sprintf("entity." + string(n.Entity))
	if n.Level == core.NotifyError && errors.Is(n.Err, core.ErrUnauthenticated) {
		return l.printer.Sprintf("error.unauthenticated", label)
	}
	var subject any = n.Name
	if n.Op == core.OpBulkUpdate || n.Op == core.OpBulkDelete {
		subject = n.Count
	}
	key := string(n.Level) + "." + string(n.Op)
	if n.Level == core.NotifySuccess {
		return l.printer.Sprintf(key, label, subject)
	}
	return l.printer.Sprintf(key, label, subject, n.Err)
}
