package nlu

import (
	"context"
	"strings"

	"github.com/smallbiznis/bookline/internal/config"
	"go.uber.org/fx"
)

type ReplyLabel string

const (
	ReplyYes     ReplyLabel = "yes"
	ReplyNo      ReplyLabel = "no"
	ReplyUnknown ReplyLabel = "unknown"
)

// Entities are the fields extractable from free-form chat text.
type Entities struct {
	TenantID string
	Service  string
}

// Understander resolves free text into routing decisions. Production setups
// may back this with a language model; the core only depends on the
// interface.
type Understander interface {
	ClassifyReply(ctx context.Context, text string) ReplyLabel
	ExtractEntities(ctx context.Context, text string) Entities
}

// KeywordUnderstander is the deterministic implementation: confirm and
// reschedule keywords come from the hot-reloadable routing config, entity
// extraction runs on token and service-name heuristics.
type KeywordUnderstander struct {
	routing *config.RoutingConfigHolder
}

func NewKeywordUnderstander(routing *config.RoutingConfigHolder) *KeywordUnderstander {
	return &KeywordUnderstander{routing: routing}
}

var knownServices = []string{"ac repair", "plumbing", "electrical", "hvac", "installation"}

func (u *KeywordUnderstander) ClassifyReply(ctx context.Context, text string) ReplyLabel {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ReplyUnknown
	}

	cfg := u.routingConfig()
	for _, kw := range cfg.ConfirmKeywords {
		if lower == kw {
			return ReplyYes
		}
	}
	for _, kw := range cfg.RescheduleKeywords {
		if strings.Contains(lower, kw) {
			return ReplyNo
		}
	}
	for _, kw := range cfg.DeclineKeywords {
		if lower == kw {
			return ReplyNo
		}
	}
	return ReplyUnknown
}

func (u *KeywordUnderstander) ExtractEntities(ctx context.Context, text string) Entities {
	lower := strings.ToLower(strings.ReplaceAll(text, "\n", " "))

	var entities Entities
	for _, token := range strings.Fields(lower) {
		if strings.HasPrefix(token, "t_") {
			entities.TenantID = token
			break
		}
	}
	for _, svc := range knownServices {
		if strings.Contains(lower, svc) {
			entities.Service = titleCase(svc)
			break
		}
	}
	return entities
}

func (u *KeywordUnderstander) routingConfig() config.RoutingConfig {
	if u.routing == nil {
		return config.DefaultRoutingConfig()
	}
	return u.routing.Get()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "ac" || w == "hvac" {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var Module = fx.Module("nlu",
	fx.Provide(func(routing *config.RoutingConfigHolder) Understander {
		return NewKeywordUnderstander(routing)
	}),
)
