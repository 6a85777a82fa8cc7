// Package graph implements the reply-dispatch relay to the Meta Graph API.
// It shapes exactly one outbound request per dispatch: endpoint selection is
// a deterministic mapping from (platform, channel), and dry-run mode returns
// a descriptor of the call instead of performing it.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/lcastro/replydesk/internal/config"
)

// Platform and channel values accepted by the relay.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"

	ChannelComment = "comment"
	ChannelMessage = "message"
)

// DispatchRequest describes one reply dispatch. AccessToken must already be
// resolved by the caller (request token or environment fallback); an empty
// token forces dry-run mode.
type DispatchRequest struct {
	Platform            string
	TargetID            string
	Message             string
	Channel             string
	DryRun              bool
	AccessToken         string
	IGBusinessAccountID string
	ReplyToID           string
}

// Result is the outcome of a dispatch: either a dry-run descriptor or the
// remote API's decoded JSON body.
type Result struct {
	DryRun bool
	Data   map[string]any
}

// APIError represents an error response from the Graph API. Its message text
// is surfaced to the caller verbatim.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api error: %s (type: %s, code: %d)", e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("graph api error: %s", e.Message)
}

// Dispatcher defines the relay operation used by the HTTP layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*Result, error)
}

type client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	log        *slog.Logger
}

// NewClient creates a Graph API relay client from the Meta configuration
// section.
func NewClient(cfg config.MetaConfig, log *slog.Logger) Dispatcher {
	return &client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		log:        log.With("component", "graph_client"),
	}
}

// Dispatch performs one reply dispatch. In dry-run mode (requested, or no
// access token available) it returns a descriptor of the call that would have
// been made without touching the network. Otherwise it performs exactly one
// outbound call and returns the remote JSON body. There are no retries.
func (c *client) Dispatch(ctx context.Context, req DispatchRequest) (*Result, error) {
	call, err := c.buildCall(req)
	if err != nil {
		return nil, err
	}

	if req.DryRun || req.AccessToken == "" {
		reason := "requested"
		if !req.DryRun {
			reason = "no access token available"
		}
		c.log.InfoContext(ctx, "Dry-run dispatch",
			"platform", req.Platform, "channel", req.Channel, "target_id", req.TargetID, "reason", reason)

		return &Result{
			DryRun: true,
			Data: map[string]any{
				"dryRun":  true,
				"method":  http.MethodPost,
				"url":     call.url,
				"payload": call.payload,
				"reason":  reason,
			},
		}, nil
	}

	data, err := c.post(ctx, call, req.AccessToken)
	if err != nil {
		return nil, err
	}

	c.log.InfoContext(ctx, "Dispatch delivered",
		"platform", req.Platform, "channel", req.Channel, "target_id", req.TargetID)
	return &Result{Data: data}, nil
}

// graphCall is one shaped outbound request.
type graphCall struct {
	url     string
	payload map[string]any
}

// buildCall maps (platform, channel) to a Graph API path and request body.
// Facebook paths are rooted at the target object directly; Instagram paths
// are rooted at the business account ID and carry the target in the body.
func (c *client) buildCall(req DispatchRequest) (*graphCall, error) {
	target := req.TargetID
	if req.ReplyToID != "" && req.Channel == ChannelComment {
		// Replying inside a thread targets the parent comment rather than
		// the original object.
		target = req.ReplyToID
	}

	switch {
	case req.Platform == PlatformFacebook && req.Channel == ChannelComment:
		return &graphCall{
			url:     c.objectURL(target, "comments"),
			payload: map[string]any{"message": req.Message},
		}, nil

	case req.Platform == PlatformFacebook && req.Channel == ChannelMessage:
		return &graphCall{
			url:     c.objectURL(req.TargetID, "messages"),
			payload: map[string]any{"message": req.Message},
		}, nil

	case req.Platform == PlatformInstagram && req.Channel == ChannelComment:
		if req.IGBusinessAccountID == "" {
			return nil, fmt.Errorf("instagram comment reply requires an instagram business account id")
		}
		return &graphCall{
			url: c.objectURL(req.IGBusinessAccountID, "mentions"),
			payload: map[string]any{
				"comment_id": target,
				"message":    req.Message,
			},
		}, nil

	case req.Platform == PlatformInstagram && req.Channel == ChannelMessage:
		if req.IGBusinessAccountID == "" {
			return nil, fmt.Errorf("instagram message requires an instagram business account id")
		}
		return &graphCall{
			url: c.objectURL(req.IGBusinessAccountID, "messages"),
			payload: map[string]any{
				"recipient": map[string]any{"id": req.TargetID},
				"message":   map[string]any{"text": req.Message},
			},
		}, nil
	}

	return nil, fmt.Errorf("unsupported platform/channel combination: %s/%s", req.Platform, req.Channel)
}

func (c *client) objectURL(objectID, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, c.apiVersion, url.PathEscape(objectID), edge)
}

// post performs the single outbound call and decodes the remote JSON body.
func (c *client) post(ctx context.Context, call *graphCall, accessToken string) (map[string]any, error) {
	body, err := json.Marshal(call.payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	reqURL := call.url + "?access_token=" + url.QueryEscape(accessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Graph API errors come wrapped as {"error": {...}}.
		var wrapper struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &wrapper); err == nil && wrapper.Error.Message != "" {
			wrapper.Error.StatusCode = resp.StatusCode
			return nil, &wrapper.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return data, nil
}
