// Package remotedb is a docstore.Database served by the HTTP API.
package remotedb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

const apiPrefix = "/v1"

var ErrUnauthorized = errors.New("remote store: not authenticated")

// StatusError is returned for unexpected API responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store: %d %s", e.Code, e.Message)
}

type (
	Options struct {
		BaseURL      string
		Token        string // JWT sent as a bearer token
		Timeout      time.Duration
		PollInterval time.Duration
	}

	// DB talks to the collection endpoints of the API.
	DB struct {
		client       *rest.Client
		baseURL      string
		token        string
		pollInterval time.Duration
	}
)

var _ docstore.Database = (*DB)(nil) // interface compliance check

func newClient(timeout time.Duration) *rest.Client {
	return &rest.Client{HTTPClient: &http.Client{Timeout: timeout}}
}

// Open returns a store authenticated with opts.Token.
func Open(opts Options) (*DB, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.BaseURL, "opts.BaseURL"),
		vala.StringNotEmpty(opts.Token, "opts.Token"),
	).Check(); err != nil {
		return nil, err
	}
	return &DB{
		client:       newClient(opts.Timeout),
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		token:        opts.Token,
		pollInterval: opts.PollInterval,
	}, nil
}

// SignIn exchanges credentials for an API token, then opens the store with it.
func SignIn(ctx context.Context, conf *core.Config, email, password string) (*DB, error) {
	token, err := Login(ctx, conf.Remote.BaseURL, conf.Remote.Timeout, email, password)
	if err != nil {
		return nil, err
	}
	return Open(Options{
		BaseURL: conf.Remote.BaseURL,
		Token:   token,
		Timeout: conf.Remote.Timeout,
	})
}

// Login returns the API token of the given credentials.
func Login(ctx context.Context, baseURL string, timeout time.Duration, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := newClient(timeout).SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: strings.TrimSuffix(baseURL, "/") + apiPrefix + "/auth/login",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return "", errors.Wrap(err, "signing in")
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return "", err
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &data); err != nil {
		return "", errors.Wrap(err, "decoding token")
	}
	return data.Token, nil
}

func (db *DB) Collection(name string) docstore.Collection {
	return &collection{name: name, db: db}
}

func (db *DB) Close() error { return nil }

func (db *DB) send(ctx context.Context, method rest.Method, path string, body []byte) (*rest.Response, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: db.baseURL + apiPrefix + path,
		Headers: map[string]string{"Authorization": "Bearer " + db.token},
		Body:    body,
	}
	if body != nil {
		req.Headers["Content-Type"] = "application/json"
	}
	resp, err := db.client.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return resp, nil
}

func collectionPath(name string, elem ...string) string {
	parts := []string{"/collections", url.PathEscape(name)}
	for _, e := range elem {
		parts = append(parts, url.PathEscape(e))
	}
	return strings.Join(parts, "/")
}

// checkStatus converts an unexpected response into an error.
func checkStatus(resp *rest.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	msg := resp.Body
	var data struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &data); err == nil && data.Error != "" {
		msg = data.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
