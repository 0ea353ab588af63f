package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	apertus "github.com/publicai/apertus-go"
	"github.com/publicai/apertus-go/config"
	"github.com/publicai/apertus-go/internal/logger"
	"github.com/publicai/apertus-go/models"
	"github.com/publicai/apertus-go/transport"
)

// preferredModel is tried first; availability varies per key, so the demo
// falls back to whatever /v1/models reports.
const preferredModel = "swiss-ai/apertus-70b-instruct"

func main() {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	apiKey := flag.String("api-key", "", "API key (defaults to APERTUS_API_KEY)")
	baseURL := flag.String("base-url", "", "API base URL")
	model := flag.String("model", "", "Model id to use")
	system := flag.String("system", "", "System prompt for the conversation")
	noStream := flag.Bool("no-stream", false, "Use blocking completions instead of streaming")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	if *verbose {
		logger.Init(logger.DEBUG, "chat")
	} else {
		logger.Init(logger.WARN, "chat")
	}
	log := logger.GetLogger()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}
	if *apiKey != "" {
		settings.APIKey = *apiKey
	}
	if *baseURL != "" {
		settings.BaseURL = *baseURL
	}
	if *model != "" {
		settings.Model = *model
	}
	if *system != "" {
		settings.SystemPrompt = *system
	}

	client, err := apertus.NewClient(settings.Options())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	modelID := settings.Model
	if modelID == "" {
		modelID, err = chooseModel(ctx, client, preferredModel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Chatting with %s. Type /help for commands.\n", modelID)
	repl(ctx, client, modelID, settings.SystemPrompt, !*noStream)
}

// chooseModel picks a model id: the preferred one when available, then any
// apertus instruct variant, then the first model the key exposes.
func chooseModel(ctx context.Context, client *apertus.Client, preferred string) (string, error) {
	list, err := client.Models.List(ctx)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, m := range list.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return "", errors.New("no models available for this API key")
	}
	for _, id := range ids {
		if id == preferred {
			return id, nil
		}
	}
	for _, id := range ids {
		lower := strings.ToLower(id)
		if strings.Contains(lower, "apertus") && strings.Contains(lower, "instruct") {
			return id, nil
		}
	}
	return ids[0], nil
}

func repl(ctx context.Context, client *apertus.Client, modelID, systemPrompt string, streaming bool) {
	var history []models.Message
	if systemPrompt != "" {
		history = append(history, models.SystemMessage(systemPrompt))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit":
			return
		case line == "/help":
			fmt.Println("/exit         quit")
			fmt.Println("/reset        clear conversation history")
			fmt.Println("/model <id>   switch model")
			continue
		case line == "/reset":
			history = history[:0]
			if systemPrompt != "" {
				history = append(history, models.SystemMessage(systemPrompt))
			}
			fmt.Println("history cleared")
			continue
		case strings.HasPrefix(line, "/model"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
			if id == "" {
				fmt.Println("usage: /model <id>")
				continue
			}
			modelID = id
			fmt.Printf("switched to %s\n", modelID)
			continue
		}

		history = append(history, models.UserMessage(line))
		req := models.ChatCompletionRequest{Model: modelID, Messages: history}

		reply, err := turn(ctx, client, req, streaming)
		if err != nil {
			// Keep the failed user message out of the history so it can
			// be retried or rephrased.
			history = history[:len(history)-1]
			printError(err)
			continue
		}
		history = append(history, models.AssistantMessage(reply))
	}
}

// turn runs one request and returns the assistant's full reply, printing
// deltas as they arrive when streaming.
func turn(ctx context.Context, client *apertus.Client, req models.ChatCompletionRequest, streaming bool) (string, error) {
	fmt.Print("assistant> ")
	if !streaming {
		completion, err := client.Chat.Completions.Create(ctx, req)
		if err != nil {
			fmt.Println()
			return "", err
		}
		var text string
		if len(completion.Choices) > 0 && completion.Choices[0].Message != nil {
			text = completion.Choices[0].Message.Content
		}
		fmt.Println(text)
		return text, nil
	}

	st, err := client.Chat.Completions.Stream(ctx, req)
	if err != nil {
		fmt.Println()
		return "", err
	}
	defer st.Close()

	var b strings.Builder
	for ev := range st.Events(ctx) {
		if ev.Err != nil {
			fmt.Println()
			return "", ev.Err
		}
		if ev.Delta != nil {
			fmt.Print(*ev.Delta)
			b.WriteString(*ev.Delta)
		}
	}
	fmt.Println()
	return b.String(), nil
}

func printError(err error) {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "API error %d: %s\n", apiErr.StatusCode, apiErr.Message)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
