package driven

// Prompt template names recognised by the PromptStore.
const (
	// PromptAnswer is the answer-generation template. It receives the
	// assembled context and the question via fmt verbs, in that order.
	PromptAnswer = "answer"

	// PromptAnswerSystem is the system prompt for answer generation.
	PromptAnswerSystem = "answer_system"
)

// PromptStore loads prompt templates by name.
// Implementations fall back to embedded defaults when a template is
// missing, so generation never fails for want of a prompt file.
type PromptStore interface {
	// Load returns the template for the given name.
	Load(name string) (string, error)
}
