package server

import (
	"context"
	"log"

	"github.com/Hana-Lee/translate-chat/internal/config"
	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/stats"
	"github.com/Hana-Lee/translate-chat/internal/translate"
)

// pipeline turns the sender's text into the composite stored and
// broadcast for the room. Translation is all or nothing: a failed hop
// fails the whole message and nothing is persisted.
type pipeline struct {
	translator translate.Service
	db         database.ChatRepository
	primary    config.Language
	targets    []config.Language
	log        *log.Logger
	stats      stats.StatsProvider
}

// prepare returns the text to persist. Image markers and symbol-only
// texts pass through verbatim. Primary-language text is fanned out to
// the configured target languages when the recipient's translate
// setting is on, and passed through verbatim when it is off. Anything
// else is detected and translated back to the primary language.
func (p *pipeline) prepare(ctx context.Context, payload *SendMessagePayload, recipientId string) (string, *EventError) {
	if payload.Type == "image" || translate.SymbolOnly(payload.Text) {
		return payload.Text, nil
	}

	if translate.MatchesScript(p.primary.Code, payload.Text) {
		return p.prepareOutbound(ctx, payload, recipientId)
	}

	return p.prepareInbound(ctx, payload.Text)
}

func (p *pipeline) prepareOutbound(ctx context.Context, payload *SendMessagePayload, recipientId string) (string, *EventError) {
	if recipientId != "" {
		setting, err := p.db.GetRoomSetting(payload.RoomId, recipientId, "translate")
		if err != nil {
			return "", storeError("select-room-setting", err)
		}
		if setting.Value != "true" {
			return payload.Text, nil
		}
	}

	lines := make([]translate.Line, 0, len(p.targets))
	for _, target := range p.targets {
		translated, err := p.translator.Translate(ctx, payload.Text, p.primary.Code, target.Code)
		if err != nil {
			return "", providerError("translate-"+target.Label, err)
		}

		lines = append(lines, translate.Line{Label: target.Label, Text: translated})
		p.stats.Incr(stats.TranslationsServed)
	}

	return translate.Compose(payload.Text, lines), nil
}

func (p *pipeline) prepareInbound(ctx context.Context, text string) (string, *EventError) {
	lang, err := p.translator.Detect(ctx, text)
	if err != nil {
		return "", providerError("detect", err)
	}

	translated, err := p.translator.Translate(ctx, text, lang, p.primary.Code)
	if err != nil {
		return "", providerError("translate-"+p.primary.Label, err)
	}
	p.stats.Incr(stats.TranslationsServed)

	return translate.Compose(text, []translate.Line{{Label: p.primary.Label, Text: translated}}), nil
}
