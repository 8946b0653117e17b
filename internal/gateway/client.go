package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/marcheroute/marcheroute/internal/plan"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/config"
	"github.com/marcheroute/marcheroute/pkg/httpclient"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/validation"
	"go.uber.org/zap"
)

// Client talks to the planner backend. Calls are single-attempt: failures
// surface to the view state rather than being retried.
type Client struct {
	http *httpclient.Client
}

// New creates a planner gateway from the gateway configuration.
func New(cfg config.GatewayConfig) *Client {
	return &Client{
		http: httpclient.New(cfg.PlannerURL, httpclient.WithTimeout(cfg.Timeout())),
	}
}

// NewWithBaseURL creates a gateway against an explicit base URL. Used by tests.
func NewWithBaseURL(baseURL string) *Client {
	return &Client{http: httpclient.New(baseURL)}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RequestPlan fetches the walking plan for city. The city path segment is
// escaped before it goes on the wire.
func (c *Client) RequestPlan(ctx context.Context, city string, durationMinutes int) (*plan.Plan, error) {
	path := fmt.Sprintf("/plan/%s/%d", url.PathEscape(city), durationMinutes)

	body, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, c.translate(err, "plan request failed")
	}

	data, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var result plan.Plan
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, common.NewBadGatewayError("invalid plan payload", err)
	}

	if result.Route != nil {
		if err := validation.Struct(result.Route); err != nil {
			return nil, common.NewBadGatewayError("plan polyline failed validation", err)
		}
	}

	logger.InfoContext(ctx, "Plan received",
		zap.String("city", city),
		zap.Int("stops", len(result.Stops)),
		zap.Bool("has_polyline", result.HasPolyline()),
	)

	return &result, nil
}

// RequestSummary asks the planner's generation endpoint for a narrative
// summary. Whatever shape the answer field has, the caller gets a string.
func (c *Client) RequestSummary(ctx context.Context, prompt string) (string, error) {
	body, err := c.http.PostJSON(ctx, "/generate", map[string]string{"prompt": prompt})
	if err != nil {
		return "", c.translate(err, "summary request failed")
	}

	data, err := unwrap(body)
	if err != nil {
		return "", err
	}

	var payload struct {
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", common.NewBadGatewayError("invalid summary payload", err)
	}

	return stringify(payload.Answer), nil
}

// translate maps transport errors onto AppErrors, preserving the upstream
// status where one exists.
func (c *Client) translate(err error, message string) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		var env envelope
		if jsonErr := json.Unmarshal(httpErr.Body, &env); jsonErr == nil && env.Error != nil {
			return common.NewAppError(httpErr.StatusCode, env.Error.Message, err)
		}
		return common.NewAppError(httpErr.StatusCode, message, err)
	}
	return common.NewBadGatewayError(message, err)
}

func unwrap(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, common.NewBadGatewayError("invalid planner response", err)
	}
	if !env.Success {
		message := "planner reported failure"
		if env.Error != nil {
			message = env.Error.Message
		}
		return nil, common.NewBadGatewayError(message, nil)
	}
	return env.Data, nil
}

// stringify renders the answer field as display text. String answers come
// back unquoted; anything else keeps its JSON form.
func stringify(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
