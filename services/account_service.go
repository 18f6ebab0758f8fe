// services/account_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/game"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/models"
	"github.com/wfunc/cardroom/persistence"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores anything past 72 bytes.
	MaxPasswordBytes = 72
	MaxLoginLength   = 32
	MaxDisplayLength = 64
	MaxHistory       = 100
)

var (
	ErrAccountNotFound    = errs.New(errs.KindNotFound, "account not found")
	ErrWrongPassword      = errs.New(errs.KindForbidden, "wrong password")
	ErrLoginTaken         = errs.New(errs.KindConflict, "login is taken")
	ErrInvalidLogin       = errs.New(errs.KindBadRequest, "login must be 1-32 characters without spaces and not a uuid")
	ErrInvalidPassword    = errs.New(errs.KindBadRequest, "password must be 6-72 bytes")
	ErrInvalidDisplayName = errs.New(errs.KindBadRequest, "display name is too long")
)

// AccountService 账号注册、登录与战绩
type AccountService struct {
	accounts persistence.AccountStore
	records  persistence.RecordStore
	auth     *AuthService
	cost     int
	now      func() time.Time
}

func NewAccountService(accounts persistence.AccountStore, records persistence.RecordStore, auth *AuthService) *AccountService {
	return &AccountService{
		accounts: accounts,
		records:  records,
		auth:     auth,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func validLogin(login string) bool {
	if login == "" || utf8.RuneCountInString(login) > MaxLoginLength {
		return false
	}
	if strings.IndexFunc(login, unicode.IsSpace) >= 0 {
		return false
	}
	// logins must never shadow an account id
	_, err := uuid.Parse(login)
	return err != nil
}

// Register creates an account and starts its first session.
func (s *AccountService) Register(ctx context.Context, login, password, displayName string) (*models.Account, string, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if !validLogin(login) {
		return nil, "", ErrInvalidLogin
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return nil, "", ErrInvalidPassword
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = login
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayLength {
		return nil, "", ErrInvalidDisplayName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", errs.Internal("hash password", err)
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Login:        login,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return nil, "", ErrLoginTaken
		}
		return nil, "", errs.Internal("create account", err)
	}
	logger.Log.Infof("Account %s registered as %s", account.ID, login)

	token, err := s.auth.Issue(ctx, account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login checks the password of the account named by login or id and starts a
// session.
func (s *AccountService) Login(ctx context.Context, login, password string) (string, error) {
	account, err := s.Get(ctx, strings.ToLower(strings.TrimSpace(login)))
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}
	return s.auth.Issue(ctx, account.ID)
}

// Get looks an account up by login or id.
func (s *AccountService) Get(ctx context.Context, loginOrID string) (*models.Account, error) {
	account, err := s.accounts.FindByLoginOrID(ctx, loginOrID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errs.Internal("find account", err)
	}
	return account, nil
}

// RecordGame folds a finished game into every participant's stats and stores
// the game record. The first standing is the winner.
func (s *AccountService) RecordGame(ctx context.Context, roomID string, standings []game.Standing) error {
	var failed []error
	rows := make([]models.Standing, len(standings))
	for i, st := range standings {
		rows[i] = models.Standing{AccountID: st.ID, Points: st.Points, CardsHad: st.CardsHad}

		won := i == 0
		err := s.accounts.UpdateStats(ctx, st.ID, func(stats *models.Stats) {
			stats.Record(st.Points, st.CardsHad, won)
		})
		if err != nil {
			logger.Log.Errorf("Failed to update stats of %s after a game in room %s: %v", st.ID, roomID, err)
			failed = append(failed, err)
		}
	}

	record := &models.GameRecord{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Standings: rows,
		CreatedAt: s.now(),
	}
	if err := s.records.SaveGameRecord(ctx, record); err != nil {
		logger.Log.Errorf("Failed to save game record for room %s: %v", roomID, err)
		failed = append(failed, err)
	}
	if len(failed) > 0 {
		return errs.Internal("record game", errors.Join(failed...))
	}
	return nil
}

// History lists the most recent games, optionally only those of roomID.
func (s *AccountService) History(ctx context.Context, roomID string, limit int) ([]*models.GameRecord, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	records, err := s.records.ListGameRecords(ctx, roomID, limit)
	if err != nil {
		return nil, errs.Internal("list game records", err)
	}
	return records, nil
}
