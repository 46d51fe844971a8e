package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// priceCheckRequest mirrors the priceprobe API request model.
type priceCheckRequest struct {
	URL    string `json:"url"`
	Price  string `json:"price,omitempty"`
	Strict bool   `json:"strict,omitempty"`
}

// priceCheckResponse mirrors the priceprobe API result record.
type priceCheckResponse struct {
	URL              string           `json:"url"`
	NormalizedPrices []float64        `json:"normalizedPrices"`
	UsedHeadless     bool             `json:"usedHeadless"`
	MatchPrice       *float64         `json:"matchPrice"`
	Found            bool             `json:"found"`
	Accepted         bool             `json:"accepted"`
	Attempts         []attemptSummary `json:"attempts"`
	Error            *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type attemptSummary struct {
	Mode    string   `json:"mode"`
	Status  string   `json:"status"`
	Signals []string `json:"signals"`
	Error   string   `json:"error"`
}

func main() {
	apiURL := os.Getenv("PRICEPROBE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRICEPROBE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PRICEPROBE_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"priceprobe",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	checkPriceTool := mcp.NewTool("check_price",
		mcp.WithDescription("Load a product page in a real browser (headless first, headed if the page looks blocked) and list the prices it displays. When a target price is given, reports whether it is among them."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL"),
		),
		mcp.WithString("price",
			mcp.Description("Target price as displayed, e.g. '£199.99'"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Fail when the page is blocked in every browser mode instead of returning an empty list"),
		),
	)
	s.AddTool(checkPriceTool, handleCheckPrice(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the priceprobe API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleCheckPrice(apiURL, apiKey string) server.ToolHandlerFunc {
	// Two full navigations plus queueing behind other checks.
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := priceCheckRequest{
			URL:    url,
			Price:  request.GetString("price", ""),
			Strict: request.GetBool("strict", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/price-check", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("price check request failed: %v", err)), nil
		}

		var resp priceCheckResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}

		return mcp.NewToolResultText(formatResult(&resp)), nil
	}
}

func formatResult(r *priceCheckResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", r.URL)

	mode := "headed"
	if r.UsedHeadless {
		mode = "headless"
	}
	if !r.Accepted {
		fmt.Fprintf(&sb, "Page blocked or unavailable (last mode: %s)\n", mode)
	} else {
		fmt.Fprintf(&sb, "Loaded in %s mode\n", mode)
	}

	if len(r.NormalizedPrices) == 0 {
		sb.WriteString("No prices found.\n")
	} else {
		sb.WriteString("Prices:\n")
		for _, p := range r.NormalizedPrices {
			fmt.Fprintf(&sb, "  %.2f\n", p)
		}
	}

	if r.MatchPrice != nil {
		verdict := "NOT found"
		if r.Found {
			verdict = "found"
		}
		fmt.Fprintf(&sb, "Target %.2f: %s\n", *r.MatchPrice, verdict)
	}

	if len(r.Attempts) > 0 {
		sb.WriteString("Attempts:\n")
	}
	for _, a := range r.Attempts {
		line := fmt.Sprintf("  %s: %s", a.Mode, a.Status)
		if len(a.Signals) > 0 {
			line += " (" + strings.Join(a.Signals, ", ") + ")"
		}
		if a.Error != "" {
			line += " " + a.Error
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
