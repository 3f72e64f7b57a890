// Package report converts HTML documents to PDF through a Gotenberg sidecar.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrDisabled is returned when no Gotenberg URL is configured.
var ErrDisabled = errors.New("report: pdf rendering disabled")

// Page controls the paper layout. Sizes are in inches; zero values keep Gotenberg defaults.
type Page struct {
	Width           float64
	Height          float64
	Margin          float64
	PrintBackground bool
}

// ReceiptPage is an 80mm thermal roll.
var ReceiptPage = Page{Width: 3.15, Height: 11, Margin: 0.1}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. An empty baseURL yields a client whose calls return ErrDisabled.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether a Gotenberg URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg defaults.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return c.RenderPage(ctx, html, Page{})
}

// RenderPage converts html into a PDF laid out on page.
func (c *Client) RenderPage(ctx context.Context, html string, page Page) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(html)); err != nil {
		return nil, err
	}
	for field, value := range page.fields() {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p Page) fields() map[string]string {
	out := map[string]string{}
	inches := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if p.Width > 0 {
		out["paperWidth"] = inches(p.Width)
	}
	if p.Height > 0 {
		out["paperHeight"] = inches(p.Height)
	}
	if p.Margin > 0 {
		for _, side := range []string{"marginTop", "marginBottom", "marginLeft", "marginRight"} {
			out[side] = inches(p.Margin)
		}
	}
	if p.PrintBackground {
		out["printBackground"] = "true"
	}
	return out
}
