package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	serverURL string
	sourceID  string
	maxTokens int
	noStream  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "copilot",
	Short:   "Ask questions over the documentation corpus",
	Version: version,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and stream the answer",
	Long: `Ask a question against the documentation corpus.

By default the answer streams token by token; sources print first so
you can judge grounding while the answer is still being written.

Examples:
  # Stream an answer
  copilot ask "How does retrieval fusion work?"

  # Restrict retrieval to one source document
  copilot ask --source fastapi.md "What is dependency injection?"

  # Wait for the complete answer instead of streaming
  copilot ask --no-stream "What is RRF?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		if noStream {
			return askOnce(question)
		}
		return askStreaming(question)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Preview retrieval without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{
			"query":     strings.Join(args, " "),
			"source_id": sourceID,
		}
		var out struct {
			QueryID string `json:"query_id"`
			Hits    []struct {
				ID             string         `json:"id"`
				Text           string         `json:"text"`
				SourceID       string         `json:"source_id"`
				RelevanceScore float64        `json:"relevance_score"`
				OriginRanks    map[string]int `json:"origin_ranks"`
			} `json:"hits"`
			DegradedRetrieval bool `json:"degraded_retrieval"`
			DegradedRerank    bool `json:"degraded_rerank"`
		}
		if err := postJSON("/v1/search", payload, &out); err != nil {
			return err
		}

		if out.DegradedRetrieval || out.DegradedRerank {
			fmt.Println("warning: results are degraded")
		}
		for i, hit := range out.Hits {
			fmt.Printf("%2d. [%s] score=%.4f ranks=%v\n    %s\n",
				i+1, hit.SourceID, hit.RelevanceScore, hit.OriginRanks, firstLine(hit.Text))
		}
		return nil
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage the ingested corpus",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested source documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(serverURL + "/v1/documents")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var out struct {
			SourceIDs []string `json:"source_ids"`
			Count     int      `json:"count"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		for _, id := range out.SourceIDs {
			fmt.Println(id)
		}
		fmt.Printf("%d documents\n", out.Count)
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [source_id]",
	Short: "Delete every chunk of one source document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := http.NewRequest(http.MethodDelete, serverURL+"/v1/documents/"+args[0], nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("delete failed: %s", strings.TrimSpace(string(body)))
		}
		fmt.Println(strings.TrimSpace(string(body)))
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range []string{"/healthz", "/readyz"} {
			resp, err := http.Get(serverURL + path)
			if err != nil {
				return err
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			fmt.Printf("%s: %s\n", path, strings.TrimSpace(string(body)))
		}
		return nil
	},
}

func askOnce(question string) error {
	payload := map[string]any{
		"query":      question,
		"source_id":  sourceID,
		"max_tokens": maxTokens,
	}
	var out struct {
		Answer  string `json:"answer"`
		UsedRAG bool   `json:"used_rag"`
		Sources []struct {
			SourceID string  `json:"source_id"`
			Score    float64 `json:"score"`
		} `json:"sources"`
	}
	if err := postJSON("/v1/ask", payload, &out); err != nil {
		return err
	}

	printSourcesHeader(out.UsedRAG)
	if out.UsedRAG {
		for _, s := range out.Sources {
			fmt.Printf("  - %s (%.3f)\n", s.SourceID, s.Score)
		}
		fmt.Println()
	}
	fmt.Println(out.Answer)
	return nil
}

func askStreaming(question string) error {
	payload := map[string]any{
		"query":      question,
		"source_id":  sourceID,
		"max_tokens": maxTokens,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(serverURL+"/v1/ask/stream", "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := handleStreamData(event, strings.TrimPrefix(line, "data: ")); err != nil {
				return err
			}
		}
	}
	fmt.Println()
	return scanner.Err()
}

func handleStreamData(event, data string) error {
	switch event {
	case "sources":
		var meta struct {
			UsedRAG bool `json:"used_rag"`
			Sources []struct {
				SourceID string  `json:"source_id"`
				Score    float64 `json:"score"`
			} `json:"sources"`
		}
		if err := json.Unmarshal([]byte(data), &meta); err != nil {
			return err
		}
		printSourcesHeader(meta.UsedRAG)
		if meta.UsedRAG {
			for _, s := range meta.Sources {
				fmt.Printf("  - %s (%.3f)\n", s.SourceID, s.Score)
			}
			fmt.Println()
		}
	case "content":
		var fragment string
		if err := json.Unmarshal([]byte(data), &fragment); err != nil {
			return err
		}
		fmt.Print(fragment)
	case "error":
		var msg string
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return err
		}
		return fmt.Errorf("server error: %s", msg)
	case "done":
		var done struct {
			Truncated bool `json:"truncated"`
		}
		if err := json.Unmarshal([]byte(data), &done); err != nil {
			return err
		}
		if done.Truncated {
			fmt.Print("\n[answer truncated]")
		}
	}
	return nil
}

func printSourcesHeader(usedRAG bool) {
	if !usedRAG {
		fmt.Println("(no matching documents; answering from general knowledge)")
		return
	}
	fmt.Println("sources:")
}

func postJSON(path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("COPILOT_SERVER_URL", "http://localhost:9300"), "docs-copilot server URL")
	askCmd.Flags().StringVar(&sourceID, "source", "", "restrict retrieval to one source document")
	askCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "override the generation token budget")
	askCmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for the complete answer")
	searchCmd.Flags().StringVar(&sourceID, "source", "", "restrict retrieval to one source document")

	documentsCmd.AddCommand(documentsListCmd, documentsDeleteCmd)
	rootCmd.AddCommand(askCmd, searchCmd, documentsCmd, healthCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
