// Package locale translates achievement texts and requirement checklists
// for the languages the platform ships: English, Brazilian Portuguese and
// Malay. English strings are the message keys and the fallback.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// Supported lists the available languages, default first.
var Supported = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
	language.Malay,
}

var (
	matcher  = language.NewMatcher(Supported)
	messages = catalog.NewBuilder(catalog.Fallback(language.English))
)

// Match picks the supported language for an Accept-Language header value.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// Printer returns a message printer for an Accept-Language header value.
func Printer(acceptLanguage string) *message.Printer {
	return NewPrinter(Match(acceptLanguage))
}

// NewPrinter returns a message printer for a supported tag.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// AchievementTitle returns the localized title of an achievement id, or the
// id itself when it is unknown.
func AchievementTitle(p *message.Printer, id string) string {
	d, ok := progress.LookupDefinition(id)
	if !ok {
		return id
	}
	return p.Sprintf(d.Title)
}

// AchievementDescription returns the localized description of an achievement id.
func AchievementDescription(p *message.Printer, id string) string {
	d, ok := progress.LookupDefinition(id)
	if !ok {
		return ""
	}
	return p.Sprintf(d.Description)
}

// Achievement returns a copy of a with localized title and description.
func Achievement(p *message.Printer, a progress.Achievement) progress.Achievement {
	if _, ok := progress.LookupDefinition(a.ID); !ok {
		return a
	}
	a.Title = AchievementTitle(p, a.ID)
	a.Description = AchievementDescription(p, a.ID)
	return a
}

// Achievements localizes a list in place order.
func Achievements(p *message.Printer, as []progress.Achievement) []progress.Achievement {
	out := make([]progress.Achievement, len(as))
	for i, a := range as {
		out[i] = Achievement(p, a)
	}
	return out
}

// MissingMessage renders one unmet requirement.
func MissingMessage(p *message.Printer, m progress.MissingRequirement) string {
	switch m.Kind {
	case progress.RequirementVideo:
		return p.Sprintf("Video: %d%% / %d%% required", int(m.Current), int(m.Required))
	case progress.RequirementTextBlocks:
		return p.Sprintf("Text blocks: %d/%d (%.0f%% / %d%% required)", m.Read, m.Total, m.Current, int(m.Required))
	case progress.RequirementPDFs:
		return p.Sprintf("%d required PDF(s) not viewed", len(m.Missing))
	case progress.RequirementAudios:
		return p.Sprintf("%d required audio(s) not played", len(m.Missing))
	default:
		return m.Message
	}
}

// Evaluation returns a copy of e with every message localized.
func Evaluation(p *message.Printer, e progress.Evaluation) progress.Evaluation {
	missing := make([]progress.MissingRequirement, len(e.Missing))
	for i, m := range e.Missing {
		m.Message = MissingMessage(p, m)
		missing[i] = m
	}
	e.Missing = missing
	return e
}

// Describe lists the configured requirements of a lesson for the learner.
func Describe(p *message.Printer, r progress.Requirements) []string {
	var desc []string
	if v := r.VideoRequiredPercent(); v > 0 {
		desc = append(desc, p.Sprintf("Watch %d%% of the video", v))
	}
	if v := r.TextBlocksRequiredPercent(); v > 0 {
		desc = append(desc, p.Sprintf("Read %d%% of the text blocks", v))
	}
	if n := len(r.RequiredPDFs()); n > 0 {
		desc = append(desc, p.Sprintf("View %d required PDF(s)", n))
	}
	if n := len(r.RequiredAudios()); n > 0 {
		desc = append(desc, p.Sprintf("Play %d required audio(s)", n))
	}
	return desc
}
