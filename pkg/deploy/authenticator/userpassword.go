package authenticator

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// UserPassword authenticates http(s) remotes. Tokens go in Password; most
// forges accept any non-empty Username alongside a token.
type UserPassword struct {
	Username string
	Password string
}

func (a *UserPassword) GetAuth(sendMsg func(string)) (transport.AuthMethod, error) {
	if a.Password == "" {
		return nil, fmt.Errorf("password or token must be set for username/password authentication")
	}

	username := a.Username
	if username == "" {
		username = "git"
	}
	sendMsg("authenticating with username and password")

	return &http.BasicAuth{
		Username: username,
		Password: a.Password,
	}, nil
}
