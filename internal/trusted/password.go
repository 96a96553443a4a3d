package trusted

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

// PasswordProviderID is the trusted provider name the directory registers as.
const PasswordProviderID = "password"

// DirectoryUser is one credential record in the password directory.
type DirectoryUser struct {
	// AccountID is the stable identity key; filled with a UUID when empty.
	AccountID string
	Username  string
	// Hash is an argon2id PHC string (see the hashpw command).
	Hash  string
	Email string
	Name  string
}

// Directory is an in-memory username/password store backing the built-in
// "password" trusted provider. It exists so the trusted path can be exercised
// end to end without external collaborators; it is not a user database.
type Directory struct {
	mu    sync.RWMutex
	users map[string]DirectoryUser
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]DirectoryUser)}
}

// AddHashed registers a user with a pre-computed argon2id hash.
func (d *Directory) AddHashed(u DirectoryUser) {
	if u.AccountID == "" {
		u.AccountID = uuid.NewString()
	}
	d.mu.Lock()
	d.users[u.Username] = u
	d.mu.Unlock()
}

// Add hashes plain with the default argon2id parameters and registers the
// user. Returns the generated account ID.
func (d *Directory) Add(username, plain string) (string, error) {
	phc, err := password.Hash(password.Default, plain)
	if err != nil {
		return "", err
	}
	u := DirectoryUser{AccountID: uuid.NewString(), Username: username, Hash: phc}
	d.mu.Lock()
	d.users[username] = u
	d.mu.Unlock()
	return u.AccountID, nil
}

// Authenticate implements AuthenticateFunc. Expects args[0]=username and
// args[1]=password; anything else fails authentication rather than erroring,
// so probing the arity leaks nothing.
func (d *Directory) Authenticate(_ context.Context, args []any) (*oauth.User, error) {
	if len(args) != 2 {
		return nil, nil
	}
	username, ok1 := args[0].(string)
	plain, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, nil
	}
	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return nil, nil
	}

	d.mu.RLock()
	u, found := d.users[username]
	d.mu.RUnlock()
	if !found {
		return nil, nil
	}
	if !password.Verify(plain, u.Hash) {
		return nil, nil
	}

	return &oauth.User{
		Provider:  PasswordProviderID,
		AccountID: u.AccountID,
		Email:     oauth.StringPtr(u.Email),
		Name:      oauth.StringPtr(u.Name),
		Raw:       map[string]any{"username": u.Username},
	}, nil
}
