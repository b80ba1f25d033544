// reminisce is the command-line front end to the retrieval engine: run a
// query against a patient's records, inspect the routine, the memory
// graph, or persisted query telemetry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/carebridge/reminisce"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	patientID string
	clockFlag string
	expand    bool
	historyDB string
)

var rootCmd = &cobra.Command{
	Use:   "reminisce",
	Short: "Adaptive memory retrieval over dementia patient records",
	Long: "Builds a memory graph from a patient's profile, life story, and daily\n" +
		"routine, and retrieves the facts most relevant to an utterance using\n" +
		"adaptive routine-vs-story weighting.",
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run one retrieval for an utterance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agent := openAgent()
		defer agent.Close()

		at, err := parseClock(clockFlag)
		if err != nil {
			exitErr("parse --time", err)
		}

		result := agent.ProcessQuery(context.Background(), args[0], at)
		printJSON(result)
	},
}

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Print the patient's daily routine",
	Run: func(cmd *cobra.Command, args []string) {
		agent := openAgent()
		defer agent.Close()
		printJSON(agent.Records().Routine)
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Summarize the patient's memory graph",
	Run: func(cmd *cobra.Command, args []string) {
		agent := openAgent()
		defer agent.Close()

		g := agent.Graph()
		counts := map[reminisce.NodeType]int{}
		for _, n := range g.Nodes() {
			counts[n.Type]++
		}
		printJSON(map[string]any{
			"patient_id": patientID,
			"nodes":      g.NodeCount(),
			"edges":      g.EdgeCount(),
			"activities": counts[reminisce.NodeActivity],
			"people":     counts[reminisce.NodePerson],
			"memories":   counts[reminisce.NodeMemory],
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted query telemetry for the patient",
	Run: func(cmd *cobra.Command, args []string) {
		if historyDB == "" {
			exitErr("history", fmt.Errorf("--history-db (or $REMINISCE_HISTORY_DB) is required"))
		}
		store, err := reminisce.NewHistoryStore(historyDB)
		if err != nil {
			exitErr("open history db", err)
		}
		defer store.Close()

		entries, err := store.RecentQueries(patientID, 20)
		if err != nil {
			exitErr("read history", err)
		}
		printJSON(entries)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Patient data directory (default: $REMINISCE_DATA_DIR or ./Patient_Data)")
	rootCmd.PersistentFlags().StringVarP(&patientID, "patient", "p", "", "Patient identifier (required)")
	rootCmd.PersistentFlags().StringVar(&historyDB, "history-db", "", "SQLite path for query telemetry (default: $REMINISCE_HISTORY_DB)")
	rootCmd.MarkPersistentFlagRequired("patient")

	queryCmd.Flags().StringVarP(&clockFlag, "time", "t", "", "Time of day as HH:MM (default: now)")
	queryCmd.Flags().BoolVar(&expand, "expand", false, "Enable semantic keyword expansion (needs an LLM backend)")

	rootCmd.AddCommand(queryCmd, routineCmd, graphCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openAgent() *reminisce.DialogueAgent {
	agent, err := reminisce.Init(reminisce.Config{
		DataDir:        getDataDir(),
		PatientID:      patientID,
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		ExpandKeywords: expand,
		HistoryDBPath:  getHistoryDB(),
	})
	if err != nil {
		exitErr("init agent", err)
	}
	return agent
}

func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("REMINISCE_DATA_DIR"); env != "" {
		return env
	}
	return "./Patient_Data"
}

func getHistoryDB() string {
	if historyDB != "" {
		return historyDB
	}
	return os.Getenv("REMINISCE_HISTORY_DB")
}

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

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("marshal", err)
	}
	fmt.Println(string(data))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
