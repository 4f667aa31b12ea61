package deploy

import "github.com/go-git/go-git/v5/plumbing/transport"

// Authenticator supplies credentials for remote operations. A nil
// AuthMethod means the transport defaults apply.
type Authenticator interface {
	GetAuth(sendMsg func(string)) (transport.AuthMethod, error)
}
