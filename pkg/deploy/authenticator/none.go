package authenticator

import "github.com/go-git/go-git/v5/plumbing/transport"

// None defers to the transport defaults (ssh agent, credential-less http).
type None struct{}

func (_ *None) GetAuth(sendMsg func(string)) (transport.AuthMethod, error) {
	return nil, nil
}
