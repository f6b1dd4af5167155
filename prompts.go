package civicsense

import (
	"fmt"
	"strings"
)

const answerPromptTemplate = `You are a helpful government policy assistant. Using only the provided context,
answer questions about government policies and benefits.
Be concise and do not hallucinate. If you are unsure or the information
is not in the context, say so.

Context:
%s

Question: %s

Answer:`

const condensePromptTemplate = `Given the following chat history and a user question,
rephrase the follow up input question to be a standalone question.

Chat History:
%s

User Question: %s

Standalone question:`

// NoContextAnswer is returned without calling the LLM when retrieval
// comes back empty.
const NoContextAnswer = "I'm sorry, but I couldn't find relevant information to answer your question."

// BuildAnswerPrompt assembles the grounded answer prompt from retrieved
// context chunks.
func BuildAnswerPrompt(query string, contexts []string) string {
	return fmt.Sprintf(answerPromptTemplate, strings.Join(contexts, "\n\n"), query)
}

// BuildCondensePrompt assembles the question-condensing prompt from prior
// chat turns.
func BuildCondensePrompt(query string, history []ChatMessage) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return fmt.Sprintf(condensePromptTemplate, b.String(), query)
}
