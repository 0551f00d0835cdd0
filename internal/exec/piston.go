package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public Piston instance; self-hosted deployments
// override it via PISTON_URL.
const DefaultBaseURL = "https://emkc.org/api/v2/piston"

// langMap translates our language tags to Piston's runtime names.
var langMap = map[string]string{
	"python":     "python",
	"javascript": "javascript",
	"typescript": "typescript",
	"java":       "java",
	"c":          "c",
	"cpp":        "c++",
	"csharp":     "csharp",
	"go":         "go",
	"rust":       "rust",
	"ruby":       "ruby",
	"php":        "php",
	"swift":      "swift",
	"kotlin":     "kotlin",
	"scala":      "scala",
	"bash":       "bash",
	"perl":       "perl",
	"lua":        "lua",
	"r":          "rscript",
	"dart":       "dart",
	"elixir":     "elixir",
	"clojure":    "clojure",
	"haskell":    "haskell",
	"julia":      "julia",
	"pascal":     "pascal",
	"fsharp":     "fsharp.net",
	"nim":        "nim",
	"crystal":    "crystal",
	"sql":        "sqlite3",
	"powershell": "powershell",
	"erlang":     "erlang",
	"fortran":    "fortran",
	"cobol":      "cobol",
	"prolog":     "prolog",
	"lisp":       "lisp",
	"ocaml":      "ocaml",
	"groovy":     "groovy",
	"d":          "d",
	"zig":        "zig",
}

// Result carries what the executor produced; Error is a user-facing message,
// never an internal one.
type Result struct {
	Output string
	Error  string
}

// Client proxies code execution to a Piston API instance.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Supports reports whether a language tag maps to a Piston runtime.
func (c *Client) Supports(language string) bool {
	_, ok := langMap[strings.ToLower(language)]
	return ok
}

// SupportedLanguages lists the accepted language tags, sorted lexically.
func SupportedLanguages() []string {
	out := make([]string, 0, len(langMap))
	for lang := range langMap {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

type executePayload struct {
	Language       string        `json:"language"`
	Version        string        `json:"version"`
	Files          []executeFile `json:"files"`
	Stdin          string        `json:"stdin"`
	Args           []string      `json:"args"`
	CompileTimeout int           `json:"compile_timeout"`
	RunTimeout     int           `json:"run_timeout"`
	MemoryLimit    int           `json:"memory_limit"`
}

type executeFile struct {
	Content string `json:"content"`
}

type executeResponse struct {
	Run *struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
	} `json:"run"`
}

// Execute runs code remotely. Transport and upstream failures come back as a
// Result with a user-facing Error message; the underlying cause is logged.
func (c *Client) Execute(ctx context.Context, language, code string) (Result, error) {
	payload := executePayload{
		Language:       langMap[strings.ToLower(language)],
		Version:        "*",
		Files:          []executeFile{{Content: code}},
		Args:           []string{},
		CompileTimeout: 10000,
		RunTimeout:     3000,
		MemoryLimit:    128 * 1024 * 1024,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal execute payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Error("piston request failed", zap.String("language", language), zap.Error(err))
		return Result{Error: "Execution service unavailable"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var msg bytes.Buffer
		_, _ = msg.ReadFrom(resp.Body)
		c.log.Error("piston execution failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", msg.String()))
		return Result{Error: "Execution failed: " + msg.String()}, nil
	}

	var decoded executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.log.Error("piston response decode failed", zap.Error(err))
		return Result{Error: "Invalid response from execution engine"}, nil
	}
	if decoded.Run == nil {
		return Result{Error: "Invalid response from execution engine"}, nil
	}
	return Result{Output: decoded.Run.Stdout, Error: decoded.Run.Stderr}, nil
}

// CheckRuntimes verifies connectivity at startup and logs a sample of the
// available runtimes. Failure is logged, never fatal.
func (c *Client) CheckRuntimes(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runtimes", nil)
	if err != nil {
		return
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Error("piston connectivity check failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	var runtimes []struct {
		Language string `json:"language"`
		Version  string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runtimes); err != nil {
		c.log.Error("piston runtimes decode failed", zap.Error(err))
		return
	}
	sample := make([]string, 0, 5)
	for i, r := range runtimes {
		if i == 5 {
			break
		}
		sample = append(sample, r.Language+" v"+r.Version)
	}
	c.log.Info("piston connected", zap.Strings("runtimes", sample))
}
