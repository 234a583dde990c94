// Package agent runs the tool-calling conversational loop: a Gemini
// model that can call back into the local hybrid search index or out to
// web search grounding, with session history persisted between turns.
package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
	"github.com/alpinesboltltd/docwell/internal/entity"
	"github.com/alpinesboltltd/docwell/internal/logging"
	"github.com/alpinesboltltd/docwell/internal/search"
)

// MaxSteps bounds how many model/tool round trips a single Run makes
// before it gives up and returns whatever text it last produced.
const MaxSteps = 10

const defaultSystemPrompt = "You are a helpful assistant with access to a local PDF search index and web search. " +
	"Use search_local_index for questions about the indexed documents and web_search for current events or general " +
	"knowledge not in the index. Always cite which source (document page or web URL) an answer came from."

// historyLimit is how many prior messages are replayed into the model's
// context on each new turn.
const historyLimit = 20

// sessionTitleLength caps the auto-derived session title taken from a
// session's first message.
const sessionTitleLength = 60

// Source records one tool invocation the agent made while answering a
// message, for the caller to surface as an attribution list.
type Source struct {
	Type    string `json:"type"` // "local", "web", or "unknown" for an unrecognized tool name
	Query   string `json:"query"`
	Summary string `json:"summary"`
}

// Reply is the result of one Run call.
type Reply struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Client runs the agent loop over a Gemini model, a hybrid search
// engine, and a web search grounding call.
type Client struct {
	genai          *genai.Client
	model          string
	webSearchModel string
	systemPrompt   string
	engine         *search.Engine
	chat           *contentstore.ChatStore
	log            *logging.Logger
}

// Config configures a Client beyond the shared genai.Client.
type Config struct {
	Model          string
	WebSearchModel string
	SystemPrompt   string
}

// New builds an agent Client. engine serves the search_local_index tool
// and chat persists session turns across calls to Run.
func New(client *genai.Client, engine *search.Engine, chat *contentstore.ChatStore, log *logging.Logger, cfg Config) *Client {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return &Client{
		genai:          client,
		model:          cfg.Model,
		webSearchModel: cfg.WebSearchModel,
		systemPrompt:   prompt,
		engine:         engine,
		chat:           chat,
		log:            log,
	}
}

func searchTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name: "search_local_index",
					Description: "Search the local PDF index by keyword and semantics. Returns matching text " +
						"snippets and figure/table labels from indexed documents.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"query": {
								Type:        genai.TypeString,
								Description: "Search query (keywords or natural language question)",
							},
							"top_k": {
								Type:        genai.TypeInteger,
								Description: "Maximum number of results to return (default 10)",
							},
							"mode": {
								Type:        genai.TypeString,
								Description: "Retrieval mode: keyword, semantic, or hybrid (default hybrid)",
							},
						},
						Required: []string{"query"},
					},
				},
				{
					Name: "web_search",
					Description: "Search the web for current or general information. Use for facts, recent " +
						"events, or information not in the local PDF index.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"query": {
								Type:        genai.TypeString,
								Description: "Search question or keywords",
							},
						},
						Required: []string{"query"},
					},
				},
			},
		},
	}
}

// Run executes one user turn: it replays session history, lets the
// model call tools for up to MaxSteps round trips, and persists the
// user message and the final model reply.
func (c *Client) Run(ctx context.Context, sessionID, message string) (Reply, error) {
	if err := c.chat.EnsureSession(ctx, sessionID, truncate(message, sessionTitleLength)); err != nil {
		return Reply{}, fmt.Errorf("agent: ensure session: %w", err)
	}

	past, err := c.chat.RecentMessages(ctx, sessionID, historyLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("agent: load history: %w", err)
	}

	contents := make([]*genai.Content, 0, len(past)+1)
	for _, m := range past {
		role := "user"
		if m.Role == entity.ChatRoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: message}}})

	if err := c.chat.AppendMessage(ctx, sessionID, entity.ChatRoleUser, message); err != nil {
		return Reply{}, fmt.Errorf("agent: save user message: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: c.systemPrompt}}},
		Tools:             searchTools(),
	}

	var sources []Source
	var lastText string

	for step := 0; step < MaxSteps; step++ {
		result, err := c.genai.Models.GenerateContent(ctx, c.model, contents, genConfig)
		if err != nil {
			return Reply{}, fmt.Errorf("agent: generate content at step %d: %w", step, err)
		}
		if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			return Reply{Text: lastText, Sources: sources}, nil
		}

		content := result.Candidates[0].Content
		lastText = result.Text()

		calls := collectFunctionCalls(content)
		if len(calls) == 0 {
			if err := c.chat.AppendMessage(ctx, sessionID, entity.ChatRoleModel, lastText); err != nil {
				return Reply{}, fmt.Errorf("agent: save model reply: %w", err)
			}
			return Reply{Text: lastText, Sources: sources}, nil
		}

		contents = append(contents, content)

		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			resultText, src := c.executeTool(ctx, call)
			sources = append(sources, src)
			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: map[string]any{"result": resultText},
				},
			})
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: responseParts})
	}

	c.log.Warnf("agent: session %s hit max steps (%d)", sessionID, MaxSteps)
	if err := c.chat.AppendMessage(ctx, sessionID, entity.ChatRoleModel, lastText); err != nil {
		return Reply{}, fmt.Errorf("agent: save model reply: %w", err)
	}
	return Reply{Text: lastText, Sources: sources}, nil
}

func collectFunctionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func (c *Client) executeTool(ctx context.Context, call *genai.FunctionCall) (string, Source) {
	c.log.Infof("agent: tool call %s %v", call.Name, call.Args)
	switch call.Name {
	case "search_local_index":
		return c.executeSearchLocal(ctx, call.Args)
	case "web_search":
		return c.executeWebSearch(ctx, call.Args)
	default:
		return fmt.Sprintf("Unknown tool: %s", call.Name), Source{Type: "unknown", Summary: call.Name}
	}
}

func (c *Client) executeSearchLocal(ctx context.Context, args map[string]any) (string, Source) {
	query, _ := args["query"].(string)
	topK := 10
	if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}
	mode := search.ModeHybrid
	if v, ok := args["mode"].(string); ok && v != "" {
		mode = search.Mode(v)
	}

	results, err := c.engine.Search(ctx, query, mode, topK)
	if err != nil {
		c.log.Warnf("agent: search_local_index failed: %v", err)
		return fmt.Sprintf("Search error: %v", err), Source{Type: "local", Query: query}
	}
	if len(results) == 0 {
		return "No results found in the local index.", Source{Type: "local", Query: query, Summary: "no results"}
	}

	summary := "Local search results:\n"
	for _, r := range results {
		snippet := r.Snippet
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		summary += fmt.Sprintf("- [%s] p.%d (%s): %s...\n", r.DocumentTitle, r.PageNum, r.ResultType, snippet)
	}
	return summary, Source{Type: "local", Query: query, Summary: truncate(summary, 300)}
}

func (c *Client) executeWebSearch(ctx context.Context, args map[string]any) (string, Source) {
	query, _ := args["query"].(string)

	groundingTool := &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
	result, err := c.genai.Models.GenerateContent(ctx, c.webSearchModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: query}}}},
		&genai.GenerateContentConfig{Tools: []*genai.Tool{groundingTool}},
	)
	if err != nil {
		c.log.Warnf("agent: web_search failed: %v", err)
		return fmt.Sprintf("Web search error: %v", err), Source{Type: "web", Query: query}
	}

	text := result.Text()
	out := text
	if len(result.Candidates) > 0 && result.Candidates[0].GroundingMetadata != nil {
		meta := result.Candidates[0].GroundingMetadata
		if len(meta.GroundingChunks) > 0 {
			out += "\n\nSources:\n"
			for i, chunk := range meta.GroundingChunks {
				if i >= 5 {
					break
				}
				if chunk.Web == nil {
					continue
				}
				out += fmt.Sprintf("  [%d] %s: %s\n", i+1, chunk.Web.Title, chunk.Web.URI)
			}
		}
	}
	if out == "" {
		out = "No response."
	}
	return out, Source{Type: "web", Query: query, Summary: truncate(text, 300)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
