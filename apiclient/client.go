// Package apiclient is the net/http implementation of
// resources.APIClient. Responses are classified into tagged apierrors
// variants here, at the boundary, so nothing downstream ever inspects a
// response body.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/internal/utils"
	"github.com/jrsteele09/go-session-sync/resources"
	"github.com/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response we are willing to read.
const maxErrorBody = 1 << 16

var _ resources.APIClient = (*Client)(nil)

// Client talks to one resource collection endpoint, e.g.
// https://api.example.com/v1/records.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	resourcePath string
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a client for the collection at baseURL/resourcePath.
func New(baseURL, resourcePath string, options ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, errors.Errorf("[apiclient.New] invalid base URL %q", baseURL)
	}
	if resourcePath == "" {
		return nil, errors.New("[apiclient.New] resource path is required")
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		resourcePath: strings.Trim(resourcePath, "/"),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// List fetches the full collection.
func (c *Client) List(ctx context.Context, credential string) ([]resources.Resource, error) {
	body, err := c.do(ctx, http.MethodGet, c.collectionURL(), nil, credential)
	if err != nil {
		return nil, err
	}

	var list []resources.Resource
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, errors.Wrap(err, "[Client.List] decode response")
	}
	return list, nil
}

// Create posts the attributes and returns the server's resource.
func (c *Client) Create(ctx context.Context, attributes resources.Attributes, credential string) (*resources.Resource, error) {
	body, err := c.do(ctx, http.MethodPost, c.collectionURL(), attributes, credential)
	if err != nil {
		return nil, err
	}

	var created resources.Resource
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, errors.Wrap(err, "[Client.Create] decode response")
	}
	return utils.Ptr(created), nil
}

// Update patches the resource and returns the server's representation.
func (c *Client) Update(ctx context.Context, id string, attributes resources.Attributes, credential string) (*resources.Resource, error) {
	body, err := c.do(ctx, http.MethodPatch, c.memberURL(id), attributes, credential)
	if err != nil {
		return nil, err
	}

	var updated resources.Resource
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, errors.Wrap(err, "[Client.Update] decode response")
	}
	return utils.Ptr(updated), nil
}

// Delete removes the resource. Success carries no body.
func (c *Client) Delete(ctx context.Context, id string, credential string) error {
	_, err := c.do(ctx, http.MethodDelete, c.memberURL(id), nil, credential)
	return err
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/%s", c.baseURL, c.resourcePath)
}

func (c *Client) memberURL(id string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.resourcePath, url.PathEscape(id))
}

// do issues one request with the bearer credential attached and returns
// the response body on success, or a classified failure.
func (c *Client) do(ctx context.Context, method, requestURL string, payload any, credential string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.do] encode payload")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.do] build request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.do] round trip")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.do] read body")
		}
		return body, nil
	}
	return nil, classifyResponse(resp)
}

// classifyResponse decides the failure variant once, here:
//   - 401 is a rejected credential
//   - an error body carrying an "errors" array is a validation failure
//   - anything else is a bare status failure
func classifyResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.Wrapf(apierrors.ErrAuthorizationRejected, "[apiclient] %s %s", resp.Request.Method, resp.Request.URL.Path)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		messages := utils.ToStringSlice(payload.Errors)
		if len(messages) > 0 {
			return &apierrors.ValidationError{Messages: messages}
		}
	}
	return &apierrors.StatusError{Code: resp.StatusCode}
}
