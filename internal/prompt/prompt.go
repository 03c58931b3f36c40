// Package prompt holds the generation prompts shared by all generator providers.
package prompt

import "strings"

// DefaultSystem instructs the model to recommend only from the supplied evidence.
const DefaultSystem = `You are an expert local food guide for Zomato. Your goal is to provide clear, helpful,
and conversational restaurant recommendations based ONLY on the context provided.

Instructions:
1. Read the user's preferences and the list of matching restaurants.
2. Select the best 1-3 options from the context.
3. Explain WHY you chose each one based on their price, rating, or cuisine.
4. Use a friendly, professional tone.
5. Use Markdown for formatting (bold names, bullet points).
6. If no restaurants in the context strictly match the criteria, suggest the closest ones and explain.
7. DO NOT hallucinate restaurants not provided in the context.`

// User builds the user turn from the query and the numbered evidence block.
func User(query, evidence string) string {
	var b strings.Builder
	b.Grow(len(query) + len(evidence) + 96)
	b.WriteString("User Query: ")
	b.WriteString(query)
	b.WriteString("\n\nAvailable Restaurants Data:\n")
	b.WriteString(evidence)
	if !strings.HasSuffix(evidence, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("\nPlease provide your recommendations:")
	return b.String()
}
