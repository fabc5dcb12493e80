package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/internal/types"
	"github.com/newsrag/veritas/pkg/llm"
)

const systemTemplate = `Today is %s
You are a news verifier AI Assistant. You are a seasoned journalist with experience and understand the complexity and nuances of real world information.

Given an information/news article (the AFIRMATION) your task is to check if it (or parts of it) are true or not. For each part of the AFIRMATION you should explain WHY it is true or not.

Follow the steps below to formulate your answer:

1- Retrieve information related to the topic of the AFIRMATION.
1.1- Use the search_sources tool to retrieve information (the SOURCES) to confirm or refute the given AFIRMATION.
1.1.1- Consider doing searches for terms both in portuguese and in english (we have information in both languages).
1.2- Ignore SOURCES not directly related to the AFIRMATION.

2- Analyse the retrieved SOURCES and formulate a hypothesis on why the AFIRMATION is true or not.
2.1- If your analysis is not conclusive or you think you need more information, repeat step 1 as many times as needed until you are satisfied.

3- ALWAYS use the review_draft tool to get feedback on your text before finalizing it. You should use the review_draft tool ONCE.
3.1- Repeat steps 1 and 2 to improve your answer based on the given feedback.

4- Rate the TRUTHNESS of the AFIRMATION from 0 to 10, with 10 meaning the news is really true and 0 meaning it is completely wrong and misleading.

5- Write a final answer, considering the constraints below:
5.1- If the information needed to answer the AFIRMATION is not among the SOURCES, answer "I dont know".
5.2- Before each source is a URL, that is where the information came from; when answering cite this url in markdown format.
5.3- Refer to the TRUTHNESS at the end, in a new line, with the format: TRUTHNESS(0-10): <value>
5.4- Put "TERMINATE" at the end of the text, so I know you are done.

Below is an example of the expected behaviour:
[QUESTION]
A Ucrânia está tomando ações drásticas na guerra contra a Rússia e existem estudos atuais de dispositivos nucleares portáteis que podem ser usados na guerra!
[ANSWER]
**AFIRMAÇÃO**: "A Ucrânia está tomando ações drásticas na guerra contra a Rússia e existem estudos atuais de dispositivos nucleares portáteis que podem ser usados na guerra."

1. **A Ucrânia está tomando ações drásticas na guerra contra a Rússia.**
   - **VERDADE**: A Ucrânia tem intensificado suas operações militares e pedidos a aliados ocidentais para obter armamentos mais potentes, como mísseis de longo alcance, para atacar posições russas mais profundas [UOL](https://noticias.uol.com.br/ultimas-noticias/reuters/2024/09/11/blinken-e-lammy-visitam-ucrania.htm).

2. **Existem estudos atuais de dispositivos nucleares portáteis que podem ser usados na guerra.**
   - **INCERTO/IMPRECISO**: O que se discute nas fontes é a possibilidade de alteração na doutrina nuclear da Rússia, mas não há indicação do desenvolvimento de dispositivos nucleares portáteis para uso na guerra [NBC News](https://cnbc.com/2024/09/07/cia-director-russia-ukraine-war-nuclear-weapon-risk.html).

### Conclusão
A Ucrânia realmente está tomando ações drásticas, mas a questão dos dispositivos nucleares portáteis é infundada nas informações disponíveis.

### TRUTHNESS(0-10): 6`

const reviewerTemplate = `Today is %s
You are a content reviewer. When given a text you will review it and provide tips on how to improve it. Focus on the rationale and whether the main idea of the text is well exposed. If you think the text is good already, make that clear in your answer.`

var truthnessRe = regexp.MustCompile(`TRUTHNESS\s*\(0-10\)\s*:\s*(\d+)`)

type VerifierConfig struct {
	MaxRounds   int
	RRFConstant int
}

// Verifier checks an affirmation against the indexed sources using a
// tool-calling agent: a search tool over the RAG store and a one-shot
// reviewer for the draft answer.
type Verifier struct {
	config   VerifierConfig
	engine   *llm.ChatEngine
	reviewer *llm.ChatEngine
	store    types.Store
	logger   *zap.Logger
}

func NewWithConfig(config VerifierConfig, engine, reviewer *llm.ChatEngine, store types.Store, logger *zap.Logger) (*Verifier, error) {
	if config.MaxRounds == 0 {
		config.MaxRounds = 10
	}
	if config.RRFConstant == 0 {
		config.RRFConstant = 60
	}
	if engine == nil || reviewer == nil || store == nil {
		return nil, fmt.Errorf("engine, reviewer and store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		config:   config,
		engine:   engine,
		reviewer: reviewer,
		store:    store,
		logger:   logger,
	}, nil
}

func tools() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "search_sources",
				Description: "Searches the RAG database for snippets of news pages (from brazil and united states) matching the given queries. Uses vector embeddings and full-text search; results are the best ranked (RRF) across all queries. Each returned snippet is preceded by the URL it came from.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"queries": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "A list of queries that will be searched for in the database.",
						},
					},
					"required": []string{"queries"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "review_draft",
				Description: "Call this tool when you need revision for your texts. It will give you feedback on the quality of your text, and on how you can improve it.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The objective/title of the text",
						},
						"text": map[string]any{
							"type":        "string",
							"description": "The text you want to be reviewed",
						},
					},
					"required": []string{"question", "text"},
				},
			},
		},
	}
}

// Verify runs the agent loop over the conversation history plus the new
// affirmation and returns the parsed verdict.
func (v *Verifier) Verify(ctx context.Context, history []models.Message, affirmation string) (*models.Verdict, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(systemTemplate, time.Now().Format(time.RFC3339))),
	}
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, affirmation))

	seenSources := make(map[string]bool)
	var sources []string

	for round := 1; round <= v.config.MaxRounds; round++ {
		resp, err := v.engine.Generate(ctx, messages, llms.WithTools(tools()))
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no response from LLM")
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			return v.finalize(choice.Content, sources, round), nil
		}

		assistantParts := make([]llms.ContentPart, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		for _, tc := range choice.ToolCalls {
			result, err := v.dispatch(ctx, tc, seenSources, &sources)
			if err != nil {
				v.logger.Warn("tool call failed",
					zap.String("tool", tc.FunctionCall.Name),
					zap.Error(err))
				result = fmt.Sprintf("tool error: %v", err)
			}

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    result,
					},
				},
			})
		}
	}

	return nil, fmt.Errorf("no final answer after %d rounds", v.config.MaxRounds)
}

func (v *Verifier) dispatch(ctx context.Context, tc llms.ToolCall, seen map[string]bool, sources *[]string) (string, error) {
	if tc.FunctionCall == nil {
		return "", fmt.Errorf("malformed tool call")
	}

	switch tc.FunctionCall.Name {
	case "search_sources":
		var args struct {
			Queries []string `json:"queries"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad search_sources arguments: %w", err)
		}
		results, err := v.SearchSources(ctx, args.Queries)
		if err != nil {
			return "", err
		}
		for _, res := range results {
			if u := res.URL(); u != "" && !seen[u] {
				seen[u] = true
				*sources = append(*sources, u)
			}
		}
		return formatSnippets(results), nil

	case "review_draft":
		var args struct {
			Question string `json:"question"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad review_draft arguments: %w", err)
		}
		return v.review(ctx, args.Question, args.Text)

	default:
		return "", fmt.Errorf("unknown tool %q", tc.FunctionCall.Name)
	}
}

// SearchSources runs every query against the store and fuses the result
// lists with reciprocal-rank fusion.
func (v *Verifier) SearchSources(ctx context.Context, queries []string) ([]models.SearchResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries given")
	}

	k := float64(v.config.RRFConstant)
	scores := make(map[string]float64)
	rankMap := make(map[string]models.SearchResult)
	maxLen := 0

	for _, query := range queries {
		results, err := v.store.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search failed for %q: %w", query, err)
		}
		if len(results) > maxLen {
			maxLen = len(results)
		}

		for rank, res := range results {
			scores[res.ID] += 1 / (k + float64(rank) + 1)
			rankMap[res.ID] = res
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if len(ids) > maxLen {
		ids = ids[:maxLen]
	}

	fused := make([]models.SearchResult, 0, len(ids))
	for _, id := range ids {
		fused = append(fused, rankMap[id])
	}

	return fused, nil
}

func (v *Verifier) review(ctx context.Context, question, text string) (string, error) {
	prompt := fmt.Sprintf("Review the text below. Its title is %s\n\n%s", question, text)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(reviewerTemplate, time.Now().Format(time.RFC3339))),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := v.reviewer.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from reviewer")
	}
	return resp.Choices[0].Content, nil
}

func (v *Verifier) finalize(content string, sources []string, rounds int) *models.Verdict {
	answer := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(content), "TERMINATE"))

	return &models.Verdict{
		Answer:    answer,
		Truthness: ParseTruthness(content),
		Sources:   sources,
		Rounds:    rounds,
	}
}

// ParseTruthness extracts the TRUTHNESS(0-10) rating from an answer. It
// returns -1 when the line is missing or out of range.
func ParseTruthness(answer string) int {
	m := truthnessRe.FindStringSubmatch(answer)
	if m == nil {
		return -1
	}
	value, err := strconv.Atoi(m[1])
	if err != nil || value < 0 || value > 10 {
		return -1
	}
	return value
}

func formatSnippets(results []models.SearchResult) string {
	var parts []string
	for _, res := range results {
		parts = append(parts, fmt.Sprintf("#URL:%s\n %s\n", res.URL(), res.Content))
	}
	if len(parts) == 0 {
		return "No sources found."
	}
	return strings.Join(parts, "\n\n")
}
