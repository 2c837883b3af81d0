//go:build e2e

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type Response struct {
	StatusCode int                    `json:"-"`
	Status     string                 `json:"status"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Retryable  bool                   `json:"retryable"`
	Data       json.RawMessage        `json:"data"`
	Details    map[string]interface{} `json:"details"`
}

func (r Response) IsSuccess() bool {
	return r.Status == "success"
}

// Decode unmarshals the data member into v.
func (r Response) Decode(v interface{}) error {
	return json.Unmarshal(r.Data, v)
}

// Env returns the named variable or def.
func Env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

var client = &http.Client{Timeout: 10 * time.Second}

func MakeRequest(baseURL, method, path string, body interface{}, token string) Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return Response{Status: "error", Message: fmt.Sprintf("Failed to marshal request body: %v", err)}
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return Response{Status: "error", Message: fmt.Sprintf("Failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Response{Status: "error", Message: fmt.Sprintf("Request failed: %v", err)}
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return Response{StatusCode: resp.StatusCode, Status: "error", Message: fmt.Sprintf("Failed to decode response: %v", err)}
	}
	response.StatusCode = resp.StatusCode
	return response
}
