package intent

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fixmycar/assistant/backend/internal/model/chat"
)

var (
	ErrNoFallback      = errors.New("catalog fallback reply is required")
	ErrRuleNoKeywords  = errors.New("rule has no keywords")
	ErrRuleNoReply     = errors.New("rule reply is empty")
	ErrInvalidQuickRep = errors.New("quick reply label and seed are required")
)

// 快捷回复的种子文本必须落到预期的规则上，所以与关键词一起以数据形式维护。
var defaultCatalog = Catalog{
	Rules: []Rule{
		{
			Intent:   Pricing,
			Keywords: []string{"orçamento", "preço"},
			Reply:    "Para fornecer um orçamento preciso, precisamos de mais informações sobre o seu veículo e o serviço desejado. Que tal agendar uma avaliação gratuita?",
			QuickReplies: []chat.QuickReply{
				{Label: "Agendar Avaliação", Seed: "Gostaria de agendar uma avaliação gratuita."},
				{Label: "Mais Informações", Seed: "Preciso de mais informações sobre os serviços."},
			},
		},
		{
			Intent:   Hours,
			Keywords: []string{"horário", "funcionamento"},
			Reply:    "Nosso horário de funcionamento é de segunda a sexta, das 8h às 18h, e aos sábados das 9h às 14h. Aos domingos, estamos fechados. Em qual horário você prefere ser atendido?",
			QuickReplies: []chat.QuickReply{
				{Label: "Manhã", Seed: "Prefiro atendimento pela manhã."},
				{Label: "Tarde", Seed: "Prefiro atendimento à tarde."},
			},
		},
		{
			Intent:   Services,
			Keywords: []string{"serviço", "reparo"},
			Reply:    "A FIXMYCAR oferece uma ampla gama de serviços, incluindo manutenção preventiva, reparos mecânicos, elétricos, e muito mais. Qual serviço específico você está procurando?",
			QuickReplies: []chat.QuickReply{
				{Label: "Manutenção", Seed: "Estou interessado em serviços de manutenção."},
				{Label: "Reparo", Seed: "Preciso de um reparo específico."},
			},
		},
	},
	Fallback: Fallback{
		Reply: "Obrigado por entrar em contato com a FIXMYCAR! Como posso ajudar você hoje? Se preferir, posso conectá-lo a um de nossos especialistas para um atendimento mais personalizado.",
		QuickReplies: []chat.QuickReply{
			{Label: "Falar com Especialista", Seed: "Gostaria de falar com um especialista."},
			{Label: "Ver Serviços", Seed: "Quero ver a lista de serviços disponíveis."},
		},
	},
}

// DefaultCatalog 返回内置规则表的副本。
func DefaultCatalog() *Catalog {
	return defaultCatalog.clone()
}

// LoadCatalog 从YAML文件读取规则表，关键词统一转成小写。
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog 解析YAML规则表并校验。
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range catalog.Rules {
		for j, word := range catalog.Rules[i].Keywords {
			catalog.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(word))
		}
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate 检查规则表是否能对任意输入给出完整回复。
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Fallback.Reply) == "" {
		return ErrNoFallback
	}
	if err := validateReplies(c.Fallback.QuickReplies); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}

	for i, rule := range c.Rules {
		name := string(rule.Intent)
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}

		hasKeyword := false
		for _, word := range rule.Keywords {
			if word != "" {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			return fmt.Errorf("rule %s: %w", name, ErrRuleNoKeywords)
		}
		if strings.TrimSpace(rule.Reply) == "" {
			return fmt.Errorf("rule %s: %w", name, ErrRuleNoReply)
		}
		if err := validateReplies(rule.QuickReplies); err != nil {
			return fmt.Errorf("rule %s: %w", name, err)
		}
	}
	return nil
}

func validateReplies(replies []chat.QuickReply) error {
	for _, qr := range replies {
		if strings.TrimSpace(qr.Label) == "" || strings.TrimSpace(qr.Seed) == "" {
			return ErrInvalidQuickRep
		}
	}
	return nil
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		Rules: make([]Rule, len(c.Rules)),
		Fallback: Fallback{
			Reply:        c.Fallback.Reply,
			QuickReplies: cloneReplies(c.Fallback.QuickReplies),
		},
	}
	for i, rule := range c.Rules {
		out.Rules[i] = Rule{
			Intent:       rule.Intent,
			Keywords:     append([]string(nil), rule.Keywords...),
			Reply:        rule.Reply,
			QuickReplies: cloneReplies(rule.QuickReplies),
		}
	}
	return out
}
