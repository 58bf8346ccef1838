package auth

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adasgupta/videotube/internal/apperrors"
	"github.com/adasgupta/videotube/internal/repository/postgres"
	"github.com/adasgupta/videotube/internal/service/auth/tokenmanager"
	"github.com/adasgupta/videotube/internal/testutil"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction and create new AuthService
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, accessTTL time.Duration, refreshTTL time.Duration, t *testing.T, fn func(s *AuthService, repo *postgres.UserRepo, tm *tokenmanager.TokenManager)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			userRepo := &postgres.UserRepo{DB: tx}

			tokenManager, err := tokenmanager.New(tokenmanager.Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     accessTTL,
				RefreshTTL:    refreshTTL,
			})
			require.NoError(t, err, "token manager should be created without errors")

			s, err := NewService(Config{}, tokenManager, userRepo)
			require.NoError(t, err, "auth service couldn't be started", err)

			fn(s, userRepo, tokenManager)
		})
	}

	register := func(t *testing.T, s *AuthService, username string, email string, password string) {
		t.Helper()
		_, err := s.Register(t.Context(), RegisterParams{
			Username: username,
			Email:    email,
			FullName: "Some User",
			Password: password,
		})
		require.NoError(t, err, "registering new user should be ok")
	}

	t.Run("new auth service defaults", func(t *testing.T) {
		tm, err := tokenmanager.New(tokenmanager.Config{AccessSecret: "a", RefreshSecret: "r"})
		require.NoError(t, err)

		s, err := NewService(Config{}, tm, &postgres.UserRepo{})
		require.NoError(t, err, "auth service should be created without errors")

		require.Equal(t, defaultAccessCookieName, s.accessCookieName, "default access cookie name should be set")
		require.Equal(t, defaultRefreshCookieName, s.refreshCookieName, "default refresh cookie name should be set")
		require.Equal(t, defaultAccessAuthScheme, s.accessAuthScheme, "default access auth scheme should be set")
		require.Equal(t, DefaultHasher, s.hasher, "default hasher should be set to BcryptHasher")
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, repo *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				user, err := s.Register(t.Context(), RegisterParams{
					Username: "NKiryanov",
					Email:    "NK@Example.com",
					FullName: "Nikolay Kiryanov",
					Password: "StrongEnoughPassword",
				})

				require.NoError(t, err, "registering new user should be ok")
				assert.Equal(t, "nkiryanov", user.Username, "username should be stored lowercased")
				assert.Equal(t, "nk@example.com", user.Email, "email should be stored lowercased")
				assert.NotEmpty(t, user.HashedPassword, "password hash should be stored")
				assert.NotEqual(t, "StrongEnoughPassword", user.HashedPassword, "password must not be stored in plaintext")
				assert.Nil(t, user.RefreshToken, "no session should exist before login")
			})
		})

		tests := []struct {
			name     string
			username string
			email    string
		}{
			{name: "fail if username taken", username: "nkiryanov", email: "other@example.com"},
			{name: "fail if email taken", username: "other", email: "nk@example.com"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
					register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")

					_, err := s.Register(t.Context(), RegisterParams{
						Username: tt.username,
						Email:    tt.email,
						FullName: "Somebody Else",
						Password: "OtherPassword",
					})

					require.Error(t, err)
					require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
				})
			})
		}
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("by username ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, repo *postgres.UserRepo, tm *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")

				user, pair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")

				require.NoError(t, err)
				require.NotEmpty(t, pair.Access.Value, "access token should not be empty")
				require.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")

				// Access token claims must decode to the same identity
				claims, err := tm.ParseAccess(pair.Access.Value)
				require.NoError(t, err)
				assert.Equal(t, user.ID, claims.UserID)
				assert.Equal(t, "nkiryanov", claims.Username)

				// Issued refresh token must be stored on the user record
				stored, err := repo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.NotNil(t, stored.RefreshToken)
				assert.Equal(t, pair.Refresh.Value, *stored.RefreshToken)
			})
		})

		t.Run("by email ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")

				_, _, err := s.Login(t.Context(), "NK@example.com", "StrongEnoughPassword")

				require.NoError(t, err, "identifier should match email case insensitive")
			})
		})

		tests := []struct {
			name        string
			identifier  string
			password    string
			expectedErr error
		}{
			{
				name:        "fail if wrong password",
				identifier:  "nkiryanov",
				password:    "wrong",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
			{
				name:        "fail if user not exists",
				identifier:  "not-existed-user",
				password:    "StrongEnoughPassword",
				expectedErr: apperrors.ErrUserNotFound,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
					register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")

					_, _, err := s.Login(t.Context(), tt.identifier, tt.password)

					require.Error(t, err)
					require.ErrorIs(t, err, tt.expectedErr)
				})
			})
		}

		t.Run("second login invalidates previous refresh token", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")

				_, firstPair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				_, _, err = s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				// Exactly one live refresh token per user: the first one is dead now
				_, err = s.RefreshPair(t.Context(), firstPair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrInvalidToken)
			})
		})
	})

	t.Run("RefreshPair", func(t *testing.T) {
		t.Run("rotate once ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, repo *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				user, initialPair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				newPair, err := s.RefreshPair(t.Context(), initialPair.Refresh.Value)

				require.NoError(t, err)
				require.NotEqual(t, initialPair.Access.Value, newPair.Access.Value, "new access token should be different")
				require.NotEqual(t, initialPair.Refresh.Value, newPair.Refresh.Value, "new refresh token should be different")

				stored, err := repo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.NotNil(t, stored.RefreshToken)
				assert.Equal(t, newPair.Refresh.Value, *stored.RefreshToken, "stored token should be the rotated one")
			})
		})

		t.Run("fail if used once", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				_, initialPair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				// Use refresh token once - should work
				secondPair, err := s.RefreshPair(t.Context(), initialPair.Refresh.Value)
				require.NoError(t, err)

				// Try to use same refresh token again - should fail
				_, err = s.RefreshPair(t.Context(), initialPair.Refresh.Value)
				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrInvalidToken, "should return error if token already rotated")

				// The rotated token keeps working
				_, err = s.RefreshPair(t.Context(), secondPair.Refresh.Value)
				require.NoError(t, err, "latest refresh token should still be usable")
			})
		})

		t.Run("fail if expired", func(t *testing.T) {
			withTx(pg.Pool, 1*time.Second, 1*time.Second, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				_, initialPair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				// Move time forward to make sure refresh token is expired
				time.Sleep(time.Second)

				_, err = s.RefreshPair(t.Context(), initialPair.Refresh.Value)
				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrInvalidToken, "should return error if token expired")
			})
		})

		t.Run("fail if garbage", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				_, err := s.RefreshPair(t.Context(), "not-a-token")

				require.ErrorIs(t, err, apperrors.ErrInvalidToken)
			})
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("clears stored refresh token", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, repo *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				user, pair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				err = s.Logout(t.Context(), user.ID)
				require.NoError(t, err)

				stored, err := repo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				assert.Nil(t, stored.RefreshToken, "refresh token should be cleared")

				// Pre-logout refresh token must not work anymore
				_, err = s.RefreshPair(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrInvalidToken)
			})
		})
	})

	t.Run("ChangePassword", func(t *testing.T) {
		t.Run("ok and old password dies", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				user, pair, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				err = s.ChangePassword(t.Context(), user.ID, "StrongEnoughPassword", "EvenStrongerPassword")
				require.NoError(t, err)

				_, _, err = s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "old password must not work")

				_, _, err = s.Login(t.Context(), "nkiryanov", "EvenStrongerPassword")
				require.NoError(t, err, "new password must work")

				// Existing session is intentionally left alive
				_, err = s.RefreshPair(t.Context(), pair.Refresh.Value)
				require.NoError(t, err, "password change must not revoke the active session")
			})
		})

		t.Run("fail if old password wrong", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, _ *tokenmanager.TokenManager) {
				register(t, s, "nkiryanov", "nk@example.com", "StrongEnoughPassword")
				user, _, err := s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err)

				err = s.ChangePassword(t.Context(), user.ID, "wrong", "EvenStrongerPassword")
				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

				_, _, err = s.Login(t.Context(), "nkiryanov", "StrongEnoughPassword")
				require.NoError(t, err, "password must stay unchanged")
			})
		})
	})

	t.Run("full session lifecycle", func(t *testing.T) {
		withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ *postgres.UserRepo, tm *tokenmanager.TokenManager) {
			register(t, s, "alice", "alice@x.com", "pw1pw1pw1")

			user, pair1, err := s.Login(t.Context(), "alice", "pw1pw1pw1")
			require.NoError(t, err)

			claims, err := tm.ParseAccess(pair1.Access.Value)
			require.NoError(t, err)
			require.Equal(t, user.ID, claims.UserID)

			pair2, err := s.RefreshPair(t.Context(), pair1.Refresh.Value)
			require.NoError(t, err)

			_, err = s.RefreshPair(t.Context(), pair1.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken, "rotated token must be dead")

			_, err = s.RefreshPair(t.Context(), pair2.Refresh.Value)
			require.NoError(t, err, "latest token must rotate fine")
		})
	})
}
