package stub

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrUserExists = errors.New("user already exists")

// Card is the simulated stored card returned with every profile.
type Card struct {
	Number string
	Expiry string
	CVV    string
}

var SimulatedCard = Card{Number: "4111111111111111", Expiry: "12/30", CVV: "123"}

type Account struct {
	Username string
	Email    string
	Card     Card

	passwordHash []byte
}

// Accounts is the in-memory user table. Passwords are stored as bcrypt hashes.
type Accounts struct {
	mu    sync.RWMutex
	users map[string]Account
	cost  int
}

func NewAccounts(cost int) *Accounts {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{users: map[string]Account{}, cost: cost}
}

func (a *Accounts) Register(username, password, email string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[username]; exists {
		return ErrUserExists
	}
	a.users[username] = Account{Username: username, Email: email, Card: SimulatedCard, passwordHash: hash}
	return nil
}

func (a *Accounts) Authenticate(username, password string) bool {
	a.mu.RLock()
	account, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)) == nil
}

func (a *Accounts) Lookup(username string) (Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	account, ok := a.users[username]
	return account, ok
}
