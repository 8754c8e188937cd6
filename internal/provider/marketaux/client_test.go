package marketaux

import (
	"testing"
)

func TestParseNews(t *testing.T) {
	body := []byte(`{
		"meta": {"found": 2, "returned": 2, "limit": 50, "page": 1},
		"data": [
			{
				"uuid": "a1",
				"title": "Tesla expands factory",
				"description": "Tesla announced an expansion.",
				"url": "https://example.com/tesla-factory",
				"published_at": "2025-03-04T13:30:00.000000Z",
				"source": "example.com",
				"entities": [
					{"symbol": "TSLA", "type": "equity"},
					{"symbol": "XAU", "type": "commodity"}
				]
			},
			{
				"uuid": "a2",
				"title": "Markets open mixed",
				"snippet": "Stocks were mixed at the open.",
				"url": "https://example.com/markets-open",
				"published_at": "2025-03-04T14:00:00.000000Z",
				"source": "",
				"entities": []
			}
		]
	}`)
	items, err := parseNews(body)
	if err != nil {
		t.Fatalf("parseNews: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(items))
	}
	if len(items[0].Symbols) != 1 || items[0].Symbols[0] != "TSLA" {
		t.Fatalf("expected only equity entities kept, got %v", items[0].Symbols)
	}
	if items[1].Content != "Stocks were mixed at the open." {
		t.Fatalf("expected snippet fallback, got %q", items[1].Content)
	}
	if items[1].SourceName != sourceName {
		t.Fatalf("expected source fallback %q, got %q", sourceName, items[1].SourceName)
	}
	if items[0].PublishedAt.Hour() != 13 {
		t.Fatalf("unexpected published time: %v", items[0].PublishedAt)
	}
}

func TestParseNewsUpstreamError(t *testing.T) {
	body := []byte(`{"error": {"code": "invalid_api_token", "message": "Invalid API token."}}`)
	if _, err := parseNews(body); err == nil {
		t.Fatal("expected error for upstream failure body")
	}
}
