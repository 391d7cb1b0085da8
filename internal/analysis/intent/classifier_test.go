package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(d Decision) []string {
	out := make([]string, 0, len(d.QuickReplies))
	for _, qr := range d.QuickReplies {
		out = append(out, qr.Label)
	}
	return out
}

func TestClassifyPricing(t *testing.T) {
	d := Classify("Quanto custa um reparo? Qual o preço?")
	assert.Equal(t, Pricing, d.Intent)
	assert.Equal(t, []string{"Agendar Avaliação", "Mais Informações"}, labels(d))
}

func TestClassifyRepairQuestionWithoutPriceKeyword(t *testing.T) {
	d := Classify("Quanto custa um reparo?")
	assert.Equal(t, Services, d.Intent)
	assert.Equal(t, []string{"Manutenção", "Reparo"}, labels(d))
}

func TestClassifyPricingWinsOverHours(t *testing.T) {
	d := Classify("Qual o preço do horário de funcionamento?")
	assert.Equal(t, Pricing, d.Intent)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Pricing, Classify("ORÇAMENTO").Intent)
	assert.Equal(t, Hours, Classify("Qual o HORÁRIO?").Intent)
}

func TestClassifyHours(t *testing.T) {
	d := Classify("Qual o funcionamento aos sábados?")
	assert.Equal(t, Hours, d.Intent)
	assert.Equal(t, []string{"Manhã", "Tarde"}, labels(d))
}

func TestClassifyServices(t *testing.T) {
	d := Classify("Vocês fazem reparo elétrico?")
	assert.Equal(t, Services, d.Intent)
	assert.Equal(t, []string{"Manutenção", "Reparo"}, labels(d))
}

func TestClassifyFallback(t *testing.T) {
	d := Classify("Bom dia!")
	assert.Equal(t, Generic, d.Intent)
	assert.Equal(t, []string{"Falar com Especialista", "Ver Serviços"}, labels(d))
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []string{"a", "Bom dia!", "preço", "horário", "serviço", "🚗", "   x   "}
	for _, in := range inputs {
		d := Classify(in)
		assert.NotEmpty(t, d.Reply, in)
		assert.Len(t, d.QuickReplies, 2, in)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	first := Classify("Preciso de um serviço")
	first.QuickReplies[0].Label = "mutated"

	second := Classify("Preciso de um serviço")
	assert.Equal(t, "Manutenção", second.QuickReplies[0].Label)
	assert.Equal(t, first.Reply, second.Reply)
}

// 每个种子文本都必须落到预期的规则上。
func TestQuickReplySeedsLandOnIntendedRule(t *testing.T) {
	cases := map[string]Intent{
		"Gostaria de agendar uma avaliação gratuita.":    Generic,
		"Preciso de mais informações sobre os serviços.": Services,
		"Prefiro atendimento pela manhã.":                Generic,
		"Prefiro atendimento à tarde.":                   Generic,
		"Estou interessado em serviços de manutenção.":   Services,
		"Preciso de um reparo específico.":               Services,
		"Gostaria de falar com um especialista.":         Generic,
		"Quero ver a lista de serviços disponíveis.":     Services,
	}
	for seed, want := range cases {
		require.Equal(t, want, Classify(seed).Intent, seed)
	}
}
