package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

func TestIPAllowed(t *testing.T) {
	tests := []struct {
		name      string
		ip        string
		whitelist []string
		want      bool
	}{
		{name: "exact match", ip: "203.0.113.7", whitelist: []string{"203.0.113.7"}, want: true},
		{name: "cidr match", ip: "10.1.2.3", whitelist: []string{"192.168.0.1", "10.0.0.0/8"}, want: true},
		{name: "ipv4-mapped ipv6", ip: "::ffff:10.1.2.3", whitelist: []string{"10.0.0.0/8"}, want: true},
		{name: "ipv6 prefix", ip: "2001:db8::1", whitelist: []string{"2001:db8::/32"}, want: true},
		{name: "no match", ip: "198.51.100.1", whitelist: []string{"10.0.0.0/8"}, want: false},
		{name: "invalid caller ip", ip: "not-an-ip", whitelist: []string{"10.0.0.0/8"}, want: false},
		{name: "empty caller ip", ip: "", whitelist: []string{"10.0.0.1"}, want: false},
		{name: "garbage entries ignored", ip: "10.0.0.1", whitelist: []string{"bogus", "10.0.0.1"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ipAllowed(tt.whitelist, tt.ip))
		})
	}
}

func TestCheckRestrictions(t *testing.T) {
	// вторник, 08:30 UTC
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	one := 1

	tests := []struct {
		token      *models.VaultToken
		name       string
		ip         string
		wantReason vaulterr.FailureReason
	}{
		{
			name:  "no restrictions",
			token: &models.VaultToken{},
		},
		{
			name: "ip rejected before time check",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				IPWhitelist: []string{"10.0.0.0/8"},
				Time:        &models.TimeRestrictions{AllowedHours: []int{23}},
			}},
			ip:         "198.51.100.1",
			wantReason: vaulterr.ReasonIPNotWhitelisted,
		},
		{
			name: "outside allowed hours",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				Time: &models.TimeRestrictions{AllowedHours: []int{9, 17}},
			}},
			wantReason: vaulterr.ReasonOutsideHours,
		},
		{
			name: "hours evaluated in token timezone",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				Time: &models.TimeRestrictions{AllowedHours: []int{17}, Timezone: "Asia/Tokyo"},
			}},
		},
		{
			name: "outside allowed days",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				Time: &models.TimeRestrictions{AllowedDays: []int{0, 6}},
			}},
			wantReason: vaulterr.ReasonOutsideDays,
		},
		{
			name: "allowed day",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				Time: &models.TimeRestrictions{AllowedDays: []int{2}},
			}},
		},
		{
			name: "unknown timezone fails closed",
			token: &models.VaultToken{Restrictions: models.TokenRestrictions{
				Time: &models.TimeRestrictions{AllowedHours: []int{8}, Timezone: "Mars/Olympus"},
			}},
			wantReason: vaulterr.ReasonOutsideHours,
		},
		{
			name:       "usage ceiling reached",
			token:      &models.VaultToken{MaxUsages: &one, UsageCount: 1},
			wantReason: vaulterr.ReasonUsageLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRestrictions(tt.token, tt.ip, now)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, vaulterr.ErrRestrictionViolation)
			assert.Equal(t, tt.wantReason, vaulterr.ReasonOf(err))
		})
	}
}

func TestValidateRestrictions(t *testing.T) {
	tests := []struct {
		name         string
		restrictions models.TokenRestrictions
		wantErr      bool
	}{
		{name: "empty", restrictions: models.TokenRestrictions{}},
		{
			name: "valid policy",
			restrictions: models.TokenRestrictions{
				IPWhitelist: []string{"10.0.0.0/8", "203.0.113.7"},
				Time:        &models.TimeRestrictions{AllowedHours: []int{0, 23}, AllowedDays: []int{0, 6}, Timezone: "Europe/Berlin"},
			},
		},
		{name: "bad cidr", restrictions: models.TokenRestrictions{IPWhitelist: []string{"10.0.0.0/99"}}, wantErr: true},
		{name: "bad ip", restrictions: models.TokenRestrictions{IPWhitelist: []string{"localhost"}}, wantErr: true},
		{name: "hour out of range", restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedHours: []int{24}}}, wantErr: true},
		{name: "day out of range", restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedDays: []int{7}}}, wantErr: true},
		{name: "unknown timezone", restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{Timezone: "Nowhere/City"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRestrictions(tt.restrictions)
			if tt.wantErr {
				assert.ErrorIs(t, err, vaulterr.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
