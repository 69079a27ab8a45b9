package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

var ErrNoToken = errors.New("backend: login answered without access token")

// Credentials is the console login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID   int64      `json:"id"`
		Role model.Role `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a session identity and its bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.Identity, string, error) {
	raw, err := c.PostJSON(ctx, "auth/login", creds, "")
	if err != nil {
		return model.Identity{}, "", err
	}

	var res loginResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.Identity{}, "", fmt.Errorf("backend: decode login: %w", err)
	}
	if res.AccessToken == "" {
		return model.Identity{}, "", ErrNoToken
	}

	role := res.User.Role
	if role != model.RoleInternalUser {
		role = model.RoleCustomerUser
	}
	return model.Identity{IsAuthenticated: true, Role: role, UserID: res.User.ID}, res.AccessToken, nil
}
