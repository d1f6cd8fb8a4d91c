package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/betbot/poolhedge/internal/control"
)

const requestTimeout = 3 * time.Second

// apiClient 控制面客户端
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *apiClient) status(ctx context.Context) (*control.StatusResponse, error) {
	var out control.StatusResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/status")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET /api/status: %s", resp.Status())
	}
	return &out, nil
}

// toggle start / stop，返回最新状态
func (c *apiClient) toggle(ctx context.Context, start bool) (*control.StatusResponse, error) {
	path := "/api/stop"
	if start {
		path = "/api/start"
	}
	var out control.StatusResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Post(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("POST %s: %s", path, resp.Status())
	}
	return &out, nil
}

// run 请求立即执行一轮；false 表示已有一轮在排队
func (c *apiClient) run(ctx context.Context) (bool, error) {
	var out struct {
		Queued bool `json:"queued"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Post("/api/run")
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("POST /api/run: %s", resp.Status())
	}
	return out.Queued, nil
}
