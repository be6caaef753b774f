package qa

import (
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Template variables available to a custom prompt.
const (
	ContextVariable  = "context"
	QuestionVariable = "question"
)

// combineChain stuffs every retrieved chunk into a single prompt. An empty
// template selects langchaingo's standard question-answering prompt.
func combineChain(model llms.Model, template string) chains.Chain {
	if template == "" {
		return chains.LoadStuffQA(model)
	}
	prompt := prompts.NewPromptTemplate(template, []string{ContextVariable, QuestionVariable})
	return chains.NewStuffDocuments(chains.NewLLMChain(model, prompt))
}
