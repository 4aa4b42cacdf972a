package programhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/go/keypair"
)

// Client is a client of a program served by New. Errors returned for error
// responses wrap the same errors the program returned, so they can be
// compared with errors.Is.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) Submit(ctx context.Context, e program.Envelope) (program.Result, error) {
	body := bytes.Buffer{}
	if err := msg.WriteEnvelope(&body, e); err != nil {
		return program.Result{}, err
	}
	result := program.Result{}
	err := c.do(ctx, http.MethodPost, "/instructions", &body, &result)
	return result, err
}

func (c *Client) Channel(ctx context.Context, address *keypair.FromAddress) (program.ChannelInfo, error) {
	info := program.ChannelInfo{}
	err := c.do(ctx, http.MethodGet, "/channels/"+address.Address(), nil, &info)
	return info, err
}

func (c *Client) Identity(ctx context.Context, address *keypair.FromAddress) (program.IdentityInfo, error) {
	info := program.IdentityInfo{}
	err := c.do(ctx, http.MethodGet, "/identities/"+address.Address(), nil, &info)
	return info, err
}

func (c *Client) Snapshot(ctx context.Context) (program.Snapshot, error) {
	s := program.Snapshot{}
	err := c.do(ctx, http.MethodGet, "/snapshot", nil, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := msg.Error{}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		for _, ec := range errorCodes {
			if ec.code == e.Code {
				return fmt.Errorf("%s: %w", e.Message, ec.err)
			}
		}
		return e
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
