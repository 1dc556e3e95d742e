package client

import (
	"context"
	"fmt"

	"github.com/purelab/lis-gateway/internal/store"
)

// HL7Client talks to the HL7 message API.
type HL7Client struct {
	rest *RESTClient
}

func NewHL7Client(baseURL string) *HL7Client {
	return &HL7Client{rest: NewRESTClient(baseURL)}
}

type SendResult struct {
	Status       string `json:"status"`
	MessageType  string `json:"message_type"`
	SegmentCount int    `json:"segment_count"`
	Timestamp    string `json:"timestamp"`
	Error        string `json:"error,omitempty"`
}

type ValidationResult struct {
	Valid        bool     `json:"valid"`
	MessageType  *string  `json:"message_type"`
	SegmentCount int      `json:"segment_count"`
	HasMSH       bool     `json:"has_msh"`
	Segments     []string `json:"segments"`
	Error        string   `json:"error,omitempty"`
}

type MessageList struct {
	Count    int                   `json:"count"`
	Messages []store.MessageRecord `json:"messages"`
}

func (c *HL7Client) Health(ctx context.Context) (string, error) {
	resp, err := c.rest.Get(ctx, "/health", nil, nil)
	if err != nil {
		return "", err
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := resp.JSON(&health); err != nil {
		return "", fmt.Errorf("unexpected health response: %w", err)
	}
	return health.Status, nil
}

// SendMessage posts raw HL7 text to the receive endpoint and returns the
// HTTP status alongside the decoded body.
func (c *HL7Client) SendMessage(ctx context.Context, message string) (int, *SendResult, error) {
	resp, err := c.rest.Post(ctx, "/api/v1/hl7/message", []byte(message), "text/plain", nil)
	if err != nil {
		return 0, nil, err
	}

	var result SendResult
	if err := resp.JSON(&result); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("unexpected send response: %w", err)
	}
	return resp.StatusCode, &result, nil
}

func (c *HL7Client) ValidateMessage(ctx context.Context, message string) (*ValidationResult, error) {
	resp, err := c.rest.Post(ctx, "/api/v1/hl7/validate", []byte(message), "text/plain", nil)
	if err != nil {
		return nil, err
	}

	var result ValidationResult
	if err := resp.JSON(&result); err != nil {
		return nil, fmt.Errorf("unexpected validation response: %w", err)
	}
	return &result, nil
}

func (c *HL7Client) Messages(ctx context.Context) (*MessageList, error) {
	resp, err := c.rest.Get(ctx, "/api/v1/hl7/messages", nil, nil)
	if err != nil {
		return nil, err
	}

	var list MessageList
	if err := resp.JSON(&list); err != nil {
		return nil, fmt.Errorf("unexpected message list: %w", err)
	}
	return &list, nil
}

func (c *HL7Client) ClearMessages(ctx context.Context) (int, error) {
	resp, err := c.rest.Delete(ctx, "/api/v1/hl7/messages", nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		ClearedCount int `json:"cleared_count"`
	}
	if err := resp.JSON(&result); err != nil {
		return 0, fmt.Errorf("unexpected clear response: %w", err)
	}
	return result.ClearedCount, nil
}
