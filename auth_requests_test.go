package roadside_test

import (
	"testing"

	roadside "github.com/goliatone/go-roadside"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in       string
		region   string
		expected string
		wantErr  bool
	}{
		{"", "US", "", false},
		{"(201) 555-0123", "", "+12015550123", false},
		{"12", "US", "", true},
		{"not a phone", "US", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := roadside.NormalizePhone(tt.in, tt.region)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := func() roadside.RegisterRequest {
		return roadside.RegisterRequest{
			Email:     "a@x.com",
			Password:  "password123",
			FirstName: "Ada",
			LastName:  "Driver",
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*roadside.RegisterRequest)
	}{
		{"missing email", func(r *roadside.RegisterRequest) { r.Email = "" }},
		{"bad email", func(r *roadside.RegisterRequest) { r.Email = "nope" }},
		{"short password", func(r *roadside.RegisterRequest) { r.Password = "1234567" }},
		{"missing first name", func(r *roadside.RegisterRequest) { r.FirstName = "" }},
		{"unknown role", func(r *roadside.RegisterRequest) { r.Role = "PILOT" }},
		{"bad license state", func(r *roadside.RegisterRequest) {
			r.License = &roadside.LicenseInput{Number: "D1", State: "California"}
		}},
		{"badge without department", func(r *roadside.RegisterRequest) {
			r.Badge = &roadside.BadgeInput{Number: "42"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			assert.Error(t, req.Validate())
		})
	}

	req := valid()
	req.Role = "officer"
	assert.NoError(t, req.Validate())
}
