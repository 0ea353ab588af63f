// Command mockserver emulates the Public AI inference API for local testing
// of the client: /v1/models plus blocking and streaming chat completions,
// including the framing quirks real providers exhibit (keepalive comments,
// data: prefixed frames, the [DONE] sentinel).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/publicai/apertus-go/models"
)

func main() {
	port := flag.String("port", "8001", "Port to listen on")
	apiKey := flag.String("api-key", "", "Require this bearer token when set")
	chunkDelay := flag.Duration("chunk-delay", 20*time.Millisecond, "Delay between streamed chunks")
	flag.Parse()

	r := gin.Default()

	if *apiKey != "" {
		r.Use(func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer "+*apiKey {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				c.Abort()
				return
			}
			c.Next()
		})
	}

	r.GET("/v1/models", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ModelsList{
			Object: models.ObjectList,
			Data: []models.ModelInfo{
				{ID: "swiss-ai/apertus-70b-instruct", Object: "model", OwnedBy: "swiss-ai"},
				{ID: "swiss-ai/apertus-8b-instruct", Object: "model", OwnedBy: "swiss-ai"},
			},
		})
	})

	r.POST("/v1/chat/completions", func(c *gin.Context) {
		var req models.ChatCompletionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(req.Messages) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messages must not be empty"})
			return
		}

		content := replyFor(&req)
		if req.Stream != nil && *req.Stream {
			streamCompletion(c, &req, content, *chunkDelay)
			return
		}

		finish := "stop"
		c.JSON(http.StatusOK, models.ChatCompletion{
			ID:      "chatcmpl-" + uuid.NewString(),
			Object:  models.ObjectChatCompletion,
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []models.ChatChoice{{
				Index:        0,
				Message:      &models.ChatChoiceMessage{Role: models.RoleAssistant, Content: content},
				FinishReason: &finish,
			}},
			Usage: &models.Usage{PromptTokens: 7, CompletionTokens: 11, TotalTokens: 18},
		})
	})

	if err := r.Run(":" + *port); err != nil {
		log.Fatal(err)
	}
}

// replyFor echoes the last user message so demo transcripts are easy to
// follow.
func replyFor(req *models.ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == models.RoleUser {
			if text, ok := req.Messages[i].Content.(string); ok {
				return "You said: " + text
			}
		}
	}
	return "Hello from the mock server."
}

func streamCompletion(c *gin.Context, req *models.ChatCompletionRequest, content string, delay time.Duration) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	chunk := func(delta models.ChatChoiceDelta, finish *string) models.ChatCompletionChunk {
		return models.ChatCompletionChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []models.ChatChoice{{Index: 0, Delta: &delta, FinishReason: finish}},
		}
	}

	writeFrame := func(v models.ChatCompletionChunk) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()
	}

	writeFrame(chunk(models.ChatChoiceDelta{Role: models.RoleAssistant}, nil))

	words := strings.SplitAfter(content, " ")
	for i, word := range words {
		// Clients must tolerate non-JSON lines between frames.
		if i == 1 {
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		}
		w := word
		writeFrame(chunk(models.ChatChoiceDelta{Content: &w}, nil))
		time.Sleep(delay)
	}

	finish := "stop"
	empty := ""
	writeFrame(chunk(models.ChatChoiceDelta{Content: &empty}, &finish))
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}
