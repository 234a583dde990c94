package agent

import (
	"testing"

	"google.golang.org/genai"
)

func TestTruncateShorterThanLimit(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestTruncateLongerThanLimit(t *testing.T) {
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestCollectFunctionCallsFindsAllCalls(t *testing.T) {
	content := &genai.Content{
		Parts: []*genai.Part{
			{Text: "thinking out loud"},
			{FunctionCall: &genai.FunctionCall{Name: "search_local_index"}},
			{FunctionCall: &genai.FunctionCall{Name: "web_search"}},
		},
	}

	calls := collectFunctionCalls(content)
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Name != "search_local_index" || calls[1].Name != "web_search" {
		t.Fatalf("got calls %+v in unexpected order", calls)
	}
}

func TestCollectFunctionCallsNoneWhenTextOnly(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{{Text: "just an answer"}}}
	if calls := collectFunctionCalls(content); len(calls) != 0 {
		t.Fatalf("got %d calls, want 0", len(calls))
	}
}

func TestSearchToolsDeclaresBothFunctions(t *testing.T) {
	tools := searchTools()
	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
	decls := tools[0].FunctionDeclarations
	if len(decls) != 2 {
		t.Fatalf("got %d function declarations, want 2", len(decls))
	}
	names := map[string]bool{decls[0].Name: true, decls[1].Name: true}
	if !names["search_local_index"] || !names["web_search"] {
		t.Fatalf("got declarations %v, want search_local_index and web_search", names)
	}
}
