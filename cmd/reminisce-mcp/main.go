// reminisce-mcp exposes the reminisce retrieval engine as an MCP stdio server.
//
// Environment variables:
//
//	REMINISCE_DATA_DIR    — patient record tree (default: ./Patient_Data)
//	REMINISCE_HISTORY_DB  — optional SQLite path for query telemetry
//	OPENAI_API_KEY        — optional; without it the offline heuristic
//	                        collaborator is used
//
// Usage:
//
//	go install github.com/carebridge/reminisce/cmd/reminisce-mcp
//	reminisce-mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/carebridge/reminisce"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	agentIdleTTL  = 30 * time.Minute
	evictInterval = 10 * time.Minute
)

func main() {
	dataDir := os.Getenv("REMINISCE_DATA_DIR")
	if dataDir == "" {
		dataDir = "./Patient_Data"
	}

	pool := newAgentPool(dataDir, os.Getenv("REMINISCE_HISTORY_DB"), os.Getenv("OPENAI_API_KEY"))
	defer pool.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.startEvictionWorker(ctx)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "reminisce-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_memory",
		Description: "Run one adaptive memory retrieval for a patient utterance: current activity, keyword analysis, ranked graph candidates, and effectiveness telemetry.",
	}, queryMemoryHandler(pool))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "current_activity",
		Description: "Look up the routine activity scheduled at a given time of day, if any.",
	}, currentActivityHandler(pool))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patient_profile",
		Description: "Return the patient's demographic and biographic profile.",
	}, patientProfileHandler(pool))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_history",
		Description: "List recent query telemetry for a patient: effectiveness scores and the weight drift over the session.",
	}, searchHistoryHandler(pool))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("reminisce-mcp: %v", err)
	}
}

// --- Agent pool ---

// agentPool creates per-patient agents lazily and evicts them after an
// idle TTL so a long-running server does not hold every patient's graph
// forever.
type agentPool struct {
	dataDir   string
	historyDB string
	apiKey    string

	mu     sync.Mutex
	agents map[string]*poolEntry
}

type poolEntry struct {
	agent    *reminisce.DialogueAgent
	lastUsed time.Time
}

func newAgentPool(dataDir, historyDB, apiKey string) *agentPool {
	return &agentPool{
		dataDir:   dataDir,
		historyDB: historyDB,
		apiKey:    apiKey,
		agents:    make(map[string]*poolEntry),
	}
}

func (p *agentPool) get(patientID string) (*reminisce.DialogueAgent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.agents[patientID]; ok {
		e.lastUsed = time.Now()
		return e.agent, nil
	}

	agent, err := reminisce.Init(reminisce.Config{
		DataDir:       p.dataDir,
		PatientID:     patientID,
		OpenAIAPIKey:  p.apiKey,
		HistoryDBPath: p.historyDB,
	})
	if err != nil {
		return nil, err
	}
	p.agents[patientID] = &poolEntry{agent: agent, lastUsed: time.Now()}
	return agent, nil
}

// startEvictionWorker closes agents idle past the TTL on a fixed tick.
func (p *agentPool) startEvictionWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(evictInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.evictIdle()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *agentPool) evictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-agentIdleTTL)
	for id, e := range p.agents {
		if e.lastUsed.Before(cutoff) {
			if err := e.agent.Close(); err != nil {
				log.Printf("[reminisce-mcp] Close agent %s: %v", id, err)
			}
			delete(p.agents, id)
			log.Printf("[reminisce-mcp] Evicted idle agent for %s", id)
		}
	}
}

func (p *agentPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.agents {
		e.agent.Close()
		delete(p.agents, id)
	}
}

// --- Input types ---

type queryMemoryInput struct {
	PatientID string `json:"patient_id"     jsonschema:"Patient identifier, e.g. P001"`
	Text      string `json:"text"           jsonschema:"The patient's utterance"`
	Time      string `json:"time,omitempty" jsonschema:"Time of day as HH:MM (default: now)"`
}

type currentActivityInput struct {
	PatientID string `json:"patient_id"     jsonschema:"Patient identifier"`
	Time      string `json:"time,omitempty" jsonschema:"Time of day as HH:MM (default: now)"`
}

type patientProfileInput struct {
	PatientID string `json:"patient_id" jsonschema:"Patient identifier"`
}

type searchHistoryInput struct {
	PatientID string `json:"patient_id"      jsonschema:"Patient identifier"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max entries to return (default 20)"`
}

// --- Handlers ---

func queryMemoryHandler(pool *agentPool) func(context.Context, *mcp.CallToolRequest, queryMemoryInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input queryMemoryInput) (*mcp.CallToolResult, any, error) {
		agent, err := pool.get(input.PatientID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}

		at, err := parseClock(input.Time)
		if err != nil {
			return textResult(fmt.Sprintf("invalid 'time': %v", err)), nil, nil
		}

		result := agent.ProcessQuery(ctx, input.Text, at)
		return textResult(jsonString(result)), nil, nil
	}
}

func currentActivityHandler(pool *agentPool) func(context.Context, *mcp.CallToolRequest, currentActivityInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input currentActivityInput) (*mcp.CallToolResult, any, error) {
		agent, err := pool.get(input.PatientID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}

		at, err := parseClock(input.Time)
		if err != nil {
			return textResult(fmt.Sprintf("invalid 'time': %v", err)), nil, nil
		}

		activity := agent.Records().Routine.ActivityAt(at)
		if activity == nil {
			return textResult(`{"current_activity": null}`), nil, nil
		}
		return textResult(jsonString(map[string]any{"current_activity": activity})), nil, nil
	}
}

func patientProfileHandler(pool *agentPool) func(context.Context, *mcp.CallToolRequest, patientProfileInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input patientProfileInput) (*mcp.CallToolResult, any, error) {
		agent, err := pool.get(input.PatientID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(agent.Profile())), nil, nil
	}
}

func searchHistoryHandler(pool *agentPool) func(context.Context, *mcp.CallToolRequest, searchHistoryInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input searchHistoryInput) (*mcp.CallToolResult, any, error) {
		agent, err := pool.get(input.PatientID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}

		history := agent.History()
		limit := input.Limit
		if limit <= 0 {
			limit = 20
		}
		if len(history) > limit {
			history = history[len(history)-limit:]
		}
		return textResult(jsonString(history)), nil, nil
	}
}

// --- Helpers ---

// parseClock turns an "HH:MM" string into a time on today's date; empty
// means now.
func parseClock(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	hm, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), hm.Hour(), hm.Minute(), 0, 0, now.Location()), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
