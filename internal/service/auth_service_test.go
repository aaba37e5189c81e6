package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pyqhub/papers-api/internal/dto"
	"github.com/pyqhub/papers-api/internal/models"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
)

type stubAdminStore struct {
	admin   *models.Admin
	findErr error
}

func (s *stubAdminStore) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.admin == nil || s.admin.Username != username {
		return nil, sql.ErrNoRows
	}
	return s.admin, nil
}

func newTestAuthService(repo *stubAdminStore) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthServiceConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "papers-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubAdminStore{admin: &models.Admin{ID: "a1", Username: "root", PasswordHash: string(hash)}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Username: "root", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "a1", res.Admin.ID)
	assert.Equal(t, "root", res.Admin.Username)
}

func TestAuthServiceLoginIndistinguishableFailures(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubAdminStore{admin: &models.Admin{ID: "a1", Username: "root", PasswordHash: string(hash)}}
	svc := newTestAuthService(repo)

	_, wrongPassErr := svc.Login(context.Background(), dto.LoginRequest{Username: "root", Password: "nope"})
	_, unknownUserErr := svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "nope"})

	require.Error(t, wrongPassErr)
	require.Error(t, unknownUserErr)
	assert.Equal(t, appErrors.FromError(wrongPassErr).Message, appErrors.FromError(unknownUserErr).Message)
	assert.Equal(t, 401, appErrors.FromError(wrongPassErr).Status)
	assert.Equal(t, 401, appErrors.FromError(unknownUserErr).Status)
}

func TestAuthServiceLoginRequiresCredentials(t *testing.T) {
	svc := newTestAuthService(&stubAdminStore{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "root"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := newTestAuthService(&stubAdminStore{})
	token, err := svc.IssueToken("a1", "root")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AdminID)
	assert.Equal(t, "root", claims.Username)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(&stubAdminStore{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestAuthService(&stubAdminStore{})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.IssueToken("a1", "root")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(&stubAdminStore{}, validator.New(), zap.NewNop(), AuthServiceConfig{Secret: "other-secret", Expiration: time.Hour})
	token, err := issuer.IssueToken("a1", "root")
	require.NoError(t, err)

	svc := newTestAuthService(&stubAdminStore{})
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}
