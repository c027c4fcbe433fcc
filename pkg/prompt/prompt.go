// Package prompt builds the assistant's system prompt.
package prompt

import (
	"strings"
	"time"

	"github.com/papercomputeco/hearth/pkg/storage"
)

// SystemTemplate is the assistant system prompt. {{relevantNotes}} and
// {{currentDate}} are substituted by Assemble.
const SystemTemplate = `You are a helpful family assistant that helps organize schedules and tasks.
You have access to the family's notes and memories stored in the database.
Use this information to provide personalized and contextually relevant responses.
If you don't have specific information about something, acknowledge that and avoid making assumptions.

Here are some recent notes from the family's database that may be relevant:

{{relevantNotes}}

Current date: {{currentDate}}`

// NoNotes replaces the note list when nothing relevant was found.
const NoNotes = "No relevant notes found."

const (
	noteDateLayout    = "1/2/2006"
	currentDateLayout = "2006-01-02"
)

// FormatNotes renders one "- {content} [Noted on: {date}]" line per note,
// with the date taken in loc.
func FormatNotes(notes []*storage.Note, loc *time.Location) string {
	if len(notes) == 0 {
		return NoNotes
	}

	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, "- "+n.Content+" [Noted on: "+n.CreatedAt.In(loc).Format(noteDateLayout)+"]")
	}
	return strings.Join(lines, "\n")
}

// Assemble returns the system prompt for notes and the given date. It is a
// pure function of its inputs. Note dates use currentDate's location, so
// the caller picks the household's zone once.
func Assemble(notes []*storage.Note, currentDate time.Time) string {
	return strings.NewReplacer(
		"{{relevantNotes}}", FormatNotes(notes, currentDate.Location()),
		"{{currentDate}}", currentDate.Format(currentDateLayout),
	).Replace(SystemTemplate)
}
