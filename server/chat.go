package server

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/pdfqa/chat"
	"github.com/poiesic/pdfqa/core"
)

type chatRequest struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	SystemPrompt   string   `json:"systemPrompt"`
	UserPrompt     string   `json:"userPrompt" binding:"required"`
	Temperature    *float64 `json:"temperature"`
	MaxTokens      int      `json:"maxTokens"`
	ConversationID string   `json:"conversationId"`
}

func (r chatRequest) toRequest() chat.Request {
	return chat.Request{
		Provider:       r.Provider,
		Model:          r.Model,
		SystemPrompt:   r.SystemPrompt,
		UserPrompt:     r.UserPrompt,
		Temperature:    r.Temperature,
		MaxTokens:      r.MaxTokens,
		ConversationID: r.ConversationID,
	}
}

// generateRequest is the scenario request shape with the scenario in the body.
type generateRequest struct {
	Scenario string      `json:"scenario" binding:"required"`
	Context  chatRequest `json:"context"`
}

type conversationJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageJSON struct {
	ID             uint64            `json:"id"`
	ConversationID string            `json:"conversationId"`
	Role           string            `json:"role"`
	Content        string            `json:"content"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func toConversationJSON(conv *core.Conversation) conversationJSON {
	return conversationJSON{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt}
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		s.fail(c, chat.ErrPromptRequired, "User prompt is required")
		return
	}

	resp, err := s.deps.Chat.Chat(c.Request.Context(), req.toRequest())
	if err != nil {
		s.fail(c, err, "")
		return
	}
	ok(c, "AI response generated successfully", gin.H{
		"response":       resp.Text,
		"conversationId": resp.ConversationID,
	})
}

func (s *Server) scenario(c *gin.Context) {
	var req chatRequest
	if !s.bindJSON(c, &req) {
		return
	}
	s.runScenario(c, c.Param("name"), req)
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		s.fail(c, core.Invalid("scenario", "is required"), "Scenario is required")
		return
	}
	s.runScenario(c, req.Scenario, req.Context)
}

func (s *Server) runScenario(c *gin.Context, name string, req chatRequest) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		s.fail(c, chat.ErrPromptRequired, "User prompt is required")
		return
	}
	resp, err := s.deps.Chat.Scenario(c.Request.Context(), name, req.toRequest())
	if err != nil {
		s.fail(c, err, "")
		return
	}
	ok(c, "Specialized response generated successfully", gin.H{
		"scenario":       name,
		"response":       resp.Text,
		"conversationId": resp.ConversationID,
	})
}

func (s *Server) scenarios(c *gin.Context) {
	ok(c, "Scenario templates retrieved successfully", gin.H{"templates": s.deps.Chat.Scenarios()})
}

func (s *Server) providers(c *gin.Context) {
	ok(c, "", gin.H{
		"providers": s.deps.Providers.Names(),
		"default":   s.deps.Providers.Default(),
	})
}

func (s *Server) createConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	// An empty body creates an untitled conversation
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(c, core.Invalid("body", err.Error()), "")
		return
	}

	conv, err := s.deps.Chat.CreateConversation(c.Request.Context(), req.Title)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	ok(c, "Conversation created successfully", gin.H{"conversation": toConversationJSON(conv)})
}

func (s *Server) conversations(c *gin.Context) {
	convs, err := s.deps.Chat.Conversations(c.Request.Context())
	if err != nil {
		s.fail(c, err, "")
		return
	}
	out := make([]conversationJSON, len(convs))
	for i, conv := range convs {
		out[i] = toConversationJSON(conv)
	}
	ok(c, "Conversations retrieved successfully", gin.H{"conversations": out})
}

func (s *Server) messages(c *gin.Context) {
	messages, err := s.deps.Chat.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	out := make([]messageJSON, len(messages))
	for i, msg := range messages {
		out[i] = messageJSON{
			ID:             uint64(msg.Id),
			ConversationID: msg.ConversationID,
			Role:           msg.Speaker.String(),
			Content:        msg.Content,
			Timestamp:      msg.Timestamp,
			Metadata:       msg.Metadata,
		}
	}
	ok(c, "Messages retrieved successfully", gin.H{"messages": out})
}
