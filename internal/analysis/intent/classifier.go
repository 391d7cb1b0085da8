package intent

import (
	"strings"

	"github.com/fixmycar/assistant/backend/internal/model/chat"
)

// Intent 表示用户话语被归入的粗粒度类别。
type Intent string

const (
	Pricing  Intent = "pricing"
	Hours    Intent = "hours"
	Services Intent = "services"
	Generic  Intent = "generic"
)

// Rule 把一组关键词映射到固定回复。任一关键词作为子串出现即命中。
type Rule struct {
	Intent       Intent            `yaml:"intent"`
	Keywords     []string          `yaml:"keywords"`
	Reply        string            `yaml:"reply"`
	QuickReplies []chat.QuickReply `yaml:"quickReplies"`
}

// Fallback 在没有任何规则命中时使用。
type Fallback struct {
	Reply        string            `yaml:"reply"`
	QuickReplies []chat.QuickReply `yaml:"quickReplies"`
}

// Decision 给出分类结果与建议的后续快捷回复。
type Decision struct {
	Intent       Intent            `json:"intent"`
	Reply        string            `json:"reply"`
	QuickReplies []chat.QuickReply `json:"quickReplies"`
}

// Catalog 是按优先级排列的规则表，末尾总有兜底回复。
type Catalog struct {
	Rules    []Rule   `yaml:"rules"`
	Fallback Fallback `yaml:"fallback"`
}

// Classify 按顺序评估规则，第一条命中的规则胜出。
func (c *Catalog) Classify(utterance string) Decision {
	normalized := strings.ToLower(utterance)

	for _, rule := range c.Rules {
		if matchesAny(normalized, rule.Keywords) {
			return Decision{
				Intent:       rule.Intent,
				Reply:        rule.Reply,
				QuickReplies: cloneReplies(rule.QuickReplies),
			}
		}
	}

	return Decision{
		Intent:       Generic,
		Reply:        c.Fallback.Reply,
		QuickReplies: cloneReplies(c.Fallback.QuickReplies),
	}
}

// Classify 使用默认规则表分类。
func Classify(utterance string) Decision {
	return defaultCatalog.Classify(utterance)
}

func matchesAny(normalized string, keywords []string) bool {
	for _, word := range keywords {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

func cloneReplies(replies []chat.QuickReply) []chat.QuickReply {
	return append([]chat.QuickReply(nil), replies...)
}
