package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/game"
	"golang.org/x/crypto/bcrypt"
)

func newTestAccounts() (*AccountService, *MockStore) {
	auth, store, _ := newTestAuth()
	accounts := NewAccountService(store, store, auth)
	accounts.cost = bcrypt.MinCost
	return accounts, store
}

func TestAccountService_Register(t *testing.T) {
	accounts, store := newTestAccounts()
	ctx := context.Background()

	account, token, err := accounts.Register(ctx, "  Alice ", "hunter22", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if account.Login != "alice" || account.DisplayName != "alice" {
		t.Errorf("Expected lowercased login as display name, got %+v", account)
	}
	if account.PasswordHash == "hunter22" {
		t.Error("Password must be hashed")
	}
	if store.tokens[token] == nil || store.tokens[token].AccountID != account.ID {
		t.Error("Register should start a session")
	}

	if _, _, err := accounts.Register(ctx, "ALICE", "another1", ""); !errors.Is(err, ErrLoginTaken) {
		t.Errorf("Expected ErrLoginTaken, got %v", err)
	}
}

func TestAccountService_RegisterValidation(t *testing.T) {
	accounts, _ := newTestAccounts()
	ctx := context.Background()

	tests := []struct {
		name     string
		login    string
		password string
		display  string
		want     error
	}{
		{"empty login", "", "hunter22", "", ErrInvalidLogin},
		{"login with space", "a b", "hunter22", "", ErrInvalidLogin},
		{"login like an id", "8d1f0c0e-2b7a-4f4e-9a53-0e6a0d7d3c11", "hunter22", "", ErrInvalidLogin},
		{"short password", "bob", "12345", "", ErrInvalidPassword},
		{"long password", "bob", strings.Repeat("x", 73), "", ErrInvalidPassword},
		{"long display name", "bob", "hunter22", strings.Repeat("b", 65), ErrInvalidDisplayName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := accounts.Register(ctx, tt.login, tt.password, tt.display)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if errs.KindOf(err) != errs.KindBadRequest {
				t.Errorf("Expected a bad request, got %s", errs.KindOf(err))
			}
		})
	}
}

func TestAccountService_Login(t *testing.T) {
	accounts, _ := newTestAccounts()
	ctx := context.Background()
	account, _, _ := accounts.Register(ctx, "bob", "secret1", "Bobby")

	if _, err := accounts.Login(ctx, "BOB", "secret1"); err != nil {
		t.Errorf("Login by name failed: %v", err)
	}
	if _, err := accounts.Login(ctx, account.ID, "secret1"); err != nil {
		t.Errorf("Login by id failed: %v", err)
	}
	if _, err := accounts.Login(ctx, "bob", "wrong!!"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if _, err := accounts.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_RecordGame(t *testing.T) {
	accounts, store := newTestAccounts()
	ctx := context.Background()
	a, _, _ := accounts.Register(ctx, "a", "password", "")
	b, _, _ := accounts.Register(ctx, "b", "password", "")
	c, _, _ := accounts.Register(ctx, "c", "password", "")

	standings := []game.Standing{
		{ID: b.ID, Points: 10, CardsHad: 9},
		{ID: c.ID, Points: 7, CardsHad: 8},
		{ID: a.ID, Points: 3, CardsHad: 12},
	}
	if err := accounts.RecordGame(ctx, "123456", standings); err != nil {
		t.Fatalf("RecordGame failed: %v", err)
	}

	winner, _ := accounts.Get(ctx, b.ID)
	if winner.Stats.Wins != 1 || winner.Stats.Points != 10 || winner.Stats.MaxPoints != 10 || winner.Stats.GamesPlayed != 1 {
		t.Errorf("Unexpected winner stats %+v", winner.Stats)
	}
	loser, _ := accounts.Get(ctx, a.ID)
	if loser.Stats.Loses != 1 || loser.Stats.CardsHad != 12 {
		t.Errorf("Unexpected loser stats %+v", loser.Stats)
	}

	history, err := accounts.History(ctx, "123456", 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("Expected one game record, got %d (%v)", len(history), err)
	}
	if history[0].Standings[0].AccountID != b.ID {
		t.Errorf("Record should keep the standings order, got %+v", history[0].Standings)
	}

	store.failWith = errMockStore
	err = accounts.RecordGame(ctx, "123456", standings)
	if errs.KindOf(err) != errs.KindInternal || !errors.Is(err, errMockStore) {
		t.Errorf("Expected an internal error, got %v", err)
	}
	if len(store.records) != 2 {
		t.Error("The game record should be saved even when stats fail")
	}
}
