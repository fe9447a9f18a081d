package session_test

import (
	"math"
	"testing"

	"github.com/goliatone/go-roadside/session"
	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     session.Page
		want   session.Page
		offset int
	}{
		{"defaults", session.Page{}, session.Page{Number: 0, Size: session.DefaultPageSize}, 0},
		{"negative number", session.Page{Number: -3, Size: 10}, session.Page{Number: 0, Size: 10}, 0},
		{"oversized page", session.Page{Number: 2, Size: 5000}, session.Page{Number: 2, Size: session.MaxPageSize}, 2 * session.MaxPageSize},
		{"huge number", session.Page{Number: math.MaxInt, Size: session.MaxPageSize},
			session.Page{Number: session.MaxPageNumber, Size: session.MaxPageSize}, session.MaxPageNumber * session.MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.offset, got.Offset())
			assert.GreaterOrEqual(t, got.Offset(), 0)
		})
	}
}
