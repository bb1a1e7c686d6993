package sessions

import (
	"encoding/json"
	"fmt"
	"os"
)

// Credentials is the preloaded username -> shared secret table.
// Authentication fails closed: an empty or unloadable table rejects
// every login attempt.
type Credentials struct {
	users map[string]string
}

// LoadCredentials reads the credential table from a JSON file of the
// form {"users": {"alice": "secret", ...}}.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var doc struct {
		Users map[string]string `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}

	return &Credentials{users: doc.Users}, nil
}

// EmptyCredentials returns a table that rejects all logins.
func EmptyCredentials() *Credentials {
	return &Credentials{users: map[string]string{}}
}

// Len returns the number of configured users.
func (c *Credentials) Len() int {
	return len(c.users)
}

// Authenticate checks a username/secret pair against the table.
func (c *Credentials) Authenticate(username, secret string) bool {
	if len(c.users) == 0 {
		return false
	}
	stored, ok := c.users[username]
	return ok && stored == secret
}
