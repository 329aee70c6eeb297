package ligands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Structure is one molecular structure resolved for a ligand
// identifier. One identifier can map to zero or more structures (an
// SDF file may hold several molecules); this service never opens the
// files itself.
type Structure struct {
	LigandID string `json:"ligand_id"`
	Index    int    `json:"index"`
	SMILES   string `json:"smiles,omitempty"`
	Path     string `json:"path,omitempty"`
}

type Client interface {
	Resolve(ctx context.Context, ids []string) ([]Structure, error)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ligands %s %s: %d %s", method, path, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// Resolve maps frontier identifiers to their molecular structures via
// the external resolver. Unknown identifiers come back with no
// structures rather than an error.
func (c *HTTPClient) Resolve(ctx context.Context, ids []string) ([]Structure, error) {
	data, err := c.doReq(ctx, "POST", "/api/v1/structures/resolve", map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	var out struct {
		Structures []Structure `json:"structures"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Structures, nil
}
