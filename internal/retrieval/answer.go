package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tabrecall/backend/internal/index"
)

const (
	noResultsAnswer = "I couldn't find any relevant information in your tabs for this query."
	maxSources      = 3
)

const answerSystemPrompt = `You are an AI assistant that helps users find information in their browser tabs.
Answer the question based ONLY on the provided tab information.
If the tabs don't contain relevant information, say so and don't make up answers.
Include references to specific tabs when relevant.
Be concise and helpful.`

// ChatClient generates a completion from a system+user prompt pair.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error)
}

// Answer carries the generated answer plus the tabs it was grounded on.
type Answer struct {
	Text    string              `json:"answer"`
	Sources []index.QueryResult `json:"sources"`
}

// Assembler turns ranked search results into a grounded answer. chat may be
// nil; every failure path degrades to a deterministic templated answer.
type Assembler struct {
	chat ChatClient
}

func NewAssembler(chat ChatClient) *Assembler {
	return &Assembler{chat: chat}
}

func (a *Assembler) Answer(ctx context.Context, query string, results []index.QueryResult) Answer {
	if len(results) == 0 {
		return Answer{Text: noResultsAnswer, Sources: []index.QueryResult{}}
	}

	sources := results
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	if a.chat == nil {
		return Answer{Text: templatedAnswer(results), Sources: sources}
	}

	answer, err := a.chat.Complete(ctx, answerSystemPrompt, answerUserPrompt(query, results), 500, false)
	if err != nil {
		slog.WarnContext(ctx, "answer generation failed, using templated answer", "error", err)
		return Answer{Text: templatedAnswer(results), Sources: sources}
	}
	return Answer{Text: answer, Sources: sources}
}

func answerUserPrompt(query string, results []index.QueryResult) string {
	var b strings.Builder
	b.WriteString("Here are my browser tabs:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[Tab %d: %s]\n", i+1, r.Title)
		snippet := r.Snippet
		if r.Summary != "" {
			snippet = r.Summary
		}
		if snippet == "" {
			snippet = "No preview available"
		}
		b.WriteString(snippet)
		b.WriteString("\n")
		fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
	}
	fmt.Fprintf(&b, "My question is: %s", query)
	return b.String()
}

// templatedAnswer is the deterministic degraded answer built from the top
// result; the end user never sees an LLM error.
func templatedAnswer(results []index.QueryResult) string {
	top := results[0]
	snippet := top.Snippet
	if snippet == "" {
		snippet = top.URL
	}
	if len(results) == 1 {
		return fmt.Sprintf("I found 1 tab that may be relevant. The closest match is %q: %s", top.Title, snippet)
	}
	return fmt.Sprintf("I found %d tabs that may be relevant. The closest match is %q: %s",
		len(results), top.Title, snippet)
}
