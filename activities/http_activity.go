package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/deepnoodle-ai/dagflow/retry"
)

// HTTPInput defines the input parameters for the HTTP activity
type HTTPInput struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"` // GET, POST, PUT, DELETE, etc.
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`             // JSON string or plain text
	JSONPayload     map[string]any    `json:"json_payload"`     // Alternative to body for JSON
	Timeout         float64           `json:"timeout"`          // in seconds, default 30
	FollowRedirects bool              `json:"follow_redirects"` // default true
	Retries         int               `json:"retries"`          // retries for transient transport errors, default 0
}

// HTTPOutput defines the output of the HTTP activity
type HTTPOutput struct {
	StatusCode    int               `json:"status_code"`
	Status        string            `json:"status"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
	JSONResponse  map[string]any    `json:"json_response,omitempty"`
	Success       bool              `json:"success"`
	ContentLength int64             `json:"content_length"`
}

// HTTPActivity makes HTTP requests
type HTTPActivity struct{}

func NewHTTPActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&HTTPActivity{})
}

func (a *HTTPActivity) Name() string {
	return "http"
}

func (a *HTTPActivity) Execute(ctx context.Context, params HTTPInput) (HTTPOutput, error) {
	if params.URL == "" {
		return HTTPOutput{}, fmt.Errorf("URL cannot be empty")
	}
	if params.Method == "" {
		params.Method = "GET"
	}
	if params.Timeout <= 0 {
		params.Timeout = 30
	}
	if params.Retries < 0 {
		params.Retries = 0
	}

	var bodyData []byte
	if params.JSONPayload != nil {
		jsonData, err := json.Marshal(params.JSONPayload)
		if err != nil {
			return HTTPOutput{}, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		bodyData = jsonData
	} else if params.Body != "" {
		bodyData = []byte(params.Body)
	}

	client := &http.Client{
		Timeout: time.Duration(params.Timeout * float64(time.Second)),
	}
	if !params.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	// The request is rebuilt per attempt so the body reader is fresh on
	// every retry. Recoverability of transport errors is decided by
	// retry.IsRecoverable; HTTP error statuses are reported in the output,
	// never retried here.
	var resp *http.Response
	err := retry.Do(ctx, func() error {
		var bodyReader io.Reader
		if bodyData != nil {
			bodyReader = bytes.NewReader(bodyData)
		}
		req, reqErr := http.NewRequestWithContext(ctx, strings.ToUpper(params.Method), params.URL, bodyReader)
		if reqErr != nil {
			return retry.NewNonRecoverableError(fmt.Errorf("failed to create request: %w", reqErr))
		}
		for key, value := range params.Headers {
			req.Header.Set(key, value)
		}
		if params.JSONPayload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		var doErr error
		resp, doErr = client.Do(req)
		return doErr
	}, retry.WithMaxRetries(params.Retries), retry.WithBaseWait(200*time.Millisecond), retry.WithJitter())
	if err != nil {
		return HTTPOutput{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPOutput{}, fmt.Errorf("failed to read response body: %w", err)
	}

	output := HTTPOutput{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Body:          string(respBody),
		Success:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		ContentLength: resp.ContentLength,
		Headers:       make(map[string]string),
	}
	for key, values := range resp.Header {
		if len(values) > 0 {
			output.Headers[key] = values[0]
		}
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var jsonResp map[string]any
		if err := json.Unmarshal(respBody, &jsonResp); err == nil {
			output.JSONResponse = jsonResp
		}
	}
	return output, nil
}
