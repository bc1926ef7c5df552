package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/domain"
)

// mondayGraphQLURL is Monday.com's single GraphQL endpoint. Only the
// client-side caching and query shape are in scope (spec §1): the rest of
// the Monday.com surface is an external collaborator the downstream agents
// own.
const mondayGraphQLURL = "https://api.monday.com/v2"

// MondayClient issues the two read-only GraphQL queries the create-task
// preview needs (board list, user list), each cached for 5 minutes.
type MondayClient struct {
	apiToken string
	http     *http.Client
	boards   *cached[[]domain.BoardRef]
	users    *cached[[]domain.UserRef]
}

func NewMondayClient(apiToken string) *MondayClient {
	c := &MondayClient{apiToken: apiToken, http: &http.Client{Timeout: 15 * time.Second}}
	c.boards = newCached(5*time.Minute, c.fetchBoards)
	c.users = newCached(5*time.Minute, c.fetchUsers)
	return c
}

// ListBoards returns the cached board directory.
func (c *MondayClient) ListBoards(ctx context.Context) ([]domain.BoardRef, error) {
	return c.boards.Get(ctx)
}

// ListUsers returns the cached user directory.
func (c *MondayClient) ListUsers(ctx context.Context) ([]domain.UserRef, error) {
	return c.users.Get(ctx)
}

type graphqlRequest struct {
	Query string `json:"query"`
}

func (c *MondayClient) query(ctx context.Context, q string, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: q})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mondayGraphQLURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("monday: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("monday: HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *MondayClient) fetchBoards(ctx context.Context) ([]domain.BoardRef, error) {
	var resp struct {
		Data struct {
			Boards []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"boards"`
		} `json:"data"`
	}
	if err := c.query(ctx, `query { boards { id name } }`, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.BoardRef, 0, len(resp.Data.Boards))
	for _, b := range resp.Data.Boards {
		out = append(out, domain.BoardRef{ID: b.ID, Name: b.Name})
	}
	return out, nil
}

func (c *MondayClient) fetchUsers(ctx context.Context) ([]domain.UserRef, error) {
	var resp struct {
		Data struct {
			Users []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"users"`
		} `json:"data"`
	}
	if err := c.query(ctx, `query { users { id name } }`, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.UserRef, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		out = append(out, domain.UserRef{ID: u.ID, Name: u.Name})
	}
	return out, nil
}
