package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowsOperation(t *testing.T) {
	tests := []struct {
		name       string
		allowedOps []string
		method     string
		want       bool
	}{
		{"empty list permits GET", nil, "GET", true},
		{"empty list permits lowercase get", nil, "get", true},
		{"empty list denies POST", nil, "POST", false},
		{"explicit list permits member", []string{"GET", "POST"}, "POST", true},
		{"explicit list is case-insensitive", []string{"get"}, "GET", true},
		{"explicit list denies non-member", []string{"GET"}, "DELETE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Connector{AllowedOps: tt.allowedOps}
			assert.Equal(t, tt.want, c.AllowsOperation(tt.method))
		})
	}
}

func TestSharedLinkExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&SharedProxyLink{}).Expired(now), "nil expiry never expires")
	assert.True(t, (&SharedProxyLink{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&SharedProxyLink{ExpiresAt: &future}).Expired(now))
}
