package organize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// TabInfo is the per-tab detail the extension supplies for organization.
type TabInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Summary   string `json:"summary,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Priorities buckets tab ids into three levels.
type Priorities struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
	Low    []string `json:"low"`
}

// ChatClient generates JSON-mode completions for the organization prompts.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error)
}

// Service groups and prioritizes tabs, degrading to domain heuristics when no
// LLM is configured or the call fails.
type Service struct {
	chat ChatClient
}

func NewService(chat ChatClient) *Service {
	return &Service{chat: chat}
}

const categorizeSystemPrompt = `You are a tab organization assistant that categorizes browser tabs into logical groups.
Based on the provided list of tabs, create 3-7 meaningful categories that best organize them.
Consider the content, domain, and purpose of each tab.
Return your response as a JSON object where:
- Keys are category names (short, 1-3 words)
- Values are arrays of tab IDs that belong in that category
- Each tab ID should appear in exactly one category
- Use semantic understanding to group related tabs, not just domain matching`

func (s *Service) Categorize(ctx context.Context, tabs []TabInfo) map[string][]string {
	if len(tabs) == 0 {
		return map[string][]string{}
	}
	if s.chat == nil {
		return categorizeByDomain(tabs)
	}

	reply, err := s.chat.Complete(ctx, categorizeSystemPrompt,
		"Here are the tabs to categorize:\n\n"+formatTabs(tabs), 0, true)
	if err != nil {
		slog.WarnContext(ctx, "categorization failed, using domain heuristic", "error", err)
		return categorizeByDomain(tabs)
	}

	var categories map[string][]string
	if err := json.Unmarshal([]byte(reply), &categories); err != nil {
		slog.WarnContext(ctx, "invalid categorization response, using domain heuristic", "error", err)
		return categorizeByDomain(tabs)
	}
	return categories
}

const prioritizeSystemPrompt = `You are a tab organization assistant that helps users prioritize their browser tabs.
Based on the provided list of tabs, categorize them into three priority levels:
- "high": Tabs that are important and likely in active use
- "medium": Tabs of moderate importance or occasional use
- "low": Tabs that appear to be no longer needed

Consider recency, content type (work/productivity content ranks above entertainment),
and how specific the page is.
Return your response as a JSON object where:
- Keys are priority levels: "high", "medium", "low"
- Values are arrays of tab IDs belonging to each priority level
- Each tab ID should appear in exactly one priority level`

func (s *Service) Prioritize(ctx context.Context, tabs []TabInfo) Priorities {
	if len(tabs) == 0 {
		return Priorities{High: []string{}, Medium: []string{}, Low: []string{}}
	}
	if s.chat == nil {
		return prioritizeByRecency(tabs)
	}

	reply, err := s.chat.Complete(ctx, prioritizeSystemPrompt,
		"Here are the tabs to prioritize:\n\n"+formatTabs(tabs), 0, true)
	if err != nil {
		slog.WarnContext(ctx, "prioritization failed, using recency heuristic", "error", err)
		return prioritizeByRecency(tabs)
	}

	var priorities Priorities
	if err := json.Unmarshal([]byte(reply), &priorities); err != nil {
		slog.WarnContext(ctx, "invalid prioritization response, using recency heuristic", "error", err)
		return prioritizeByRecency(tabs)
	}
	return priorities
}

func formatTabs(tabs []TabInfo) string {
	var b strings.Builder
	for _, tab := range tabs {
		summary := tab.Summary
		if summary == "" {
			summary = "No summary available"
		}
		fmt.Fprintf(&b, "ID: %s\nTitle: %s\nURL: %s\nSummary: %s\n\n", tab.ID, tab.Title, tab.URL, summary)
	}
	return b.String()
}

var domainBuckets = []struct {
	category string
	keywords []string
}{
	{"Development", []string{"github.", "gitlab.", "stackoverflow.", "localhost", "go.dev", "pkg.go.dev", "developer."}},
	{"Social", []string{"twitter.", "x.com", "facebook.", "reddit.", "linkedin.", "instagram."}},
	{"Media", []string{"youtube.", "netflix.", "spotify.", "twitch.", "vimeo."}},
	{"Shopping", []string{"amazon.", "ebay.", "etsy.", "aliexpress."}},
	{"News", []string{"news.", "bbc.", "cnn.", "nytimes.", "reuters.", "theguardian."}},
	{"Docs", []string{"docs.", "wiki", "readthedocs.", "confluence."}},
}

// categorizeByDomain is the no-LLM fallback: trivial host keyword buckets.
func categorizeByDomain(tabs []TabInfo) map[string][]string {
	categories := map[string][]string{}
	for _, tab := range tabs {
		host := tab.URL
		if u, err := url.Parse(tab.URL); err == nil && u.Host != "" {
			host = u.Host
		}
		host = strings.ToLower(host)

		bucket := "Other"
		for _, b := range domainBuckets {
			for _, kw := range b.keywords {
				if strings.Contains(host, kw) {
					bucket = b.category
					break
				}
			}
			if bucket != "Other" {
				break
			}
		}
		categories[bucket] = append(categories[bucket], tab.ID)
	}
	return categories
}

// prioritizeByRecency is the no-LLM fallback: last day high, last week medium,
// older (or unknown) low.
func prioritizeByRecency(tabs []TabInfo) Priorities {
	p := Priorities{High: []string{}, Medium: []string{}, Low: []string{}}
	now := time.Now()
	for _, tab := range tabs {
		ts, err := time.Parse(time.RFC3339, tab.Timestamp)
		if err != nil {
			p.Low = append(p.Low, tab.ID)
			continue
		}
		switch age := now.Sub(ts); {
		case age < 24*time.Hour:
			p.High = append(p.High, tab.ID)
		case age < 7*24*time.Hour:
			p.Medium = append(p.Medium, tab.ID)
		default:
			p.Low = append(p.Low, tab.ID)
		}
	}
	return p
}
