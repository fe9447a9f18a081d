package roadside_test

import (
	"testing"

	roadside "github.com/goliatone/go-roadside"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := roadside.NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  roadside.ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, hasher.Compare(tt.password, hash))

			err = hasher.Compare("wrong-password", hash)
			assert.ErrorIs(t, err, roadside.ErrInvalidCredentials)
		})
	}
}

func TestBcryptHasherCost(t *testing.T) {
	assert.Equal(t, roadside.DefaultBcryptCost, roadside.NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.MaxCost, roadside.NewBcryptHasher(bcrypt.MaxCost+5).Cost())

	hasher := roadside.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
