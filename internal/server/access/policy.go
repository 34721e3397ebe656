package access

import (
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// checkRestrictions проверяет политику токена в фиксированном порядке:
// IP allow-list, часы, дни недели (в часовом поясе токена), лимит использований.
func checkRestrictions(token *models.VaultToken, ip string, now time.Time) error {
	r := token.Restrictions

	if len(r.IPWhitelist) > 0 && !ipAllowed(r.IPWhitelist, ip) {
		return vaulterr.NewRestriction(vaulterr.ReasonIPNotWhitelisted)
	}

	if tr := r.Time; tr != nil && (len(tr.AllowedHours) > 0 || len(tr.AllowedDays) > 0) {
		loc, err := loadLocation(tr.Timezone)
		if err != nil {
			// неизвестный пояс: отказ, а не проверка в UTC
			return vaulterr.NewRestriction(vaulterr.ReasonOutsideHours)
		}
		local := now.In(loc)
		if len(tr.AllowedHours) > 0 && !slices.Contains(tr.AllowedHours, local.Hour()) {
			return vaulterr.NewRestriction(vaulterr.ReasonOutsideHours)
		}
		if len(tr.AllowedDays) > 0 && !slices.Contains(tr.AllowedDays, int(local.Weekday())) {
			return vaulterr.NewRestriction(vaulterr.ReasonOutsideDays)
		}
	}

	if token.UsageExhausted() {
		return vaulterr.NewRestriction(vaulterr.ReasonUsageLimitExceeded)
	}

	return nil
}

// ipAllowed сравнивает адрес с allow-list из адресов и CIDR префиксов
func ipAllowed(whitelist []string, ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")

	for _, entry := range whitelist {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err == nil && prefix.Contains(addr) {
				return true
			}
			continue
		}
		allowed, err := netip.ParseAddr(entry)
		if err == nil && allowed.Unmap() == addr {
			return true
		}
	}
	return false
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// ValidateRestrictions проверяет политику при выпуске токена
func ValidateRestrictions(r models.TokenRestrictions) error {
	for _, entry := range r.IPWhitelist {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, err := netip.ParsePrefix(entry); err != nil {
				return vaulterr.Invalid("ip_whitelist", "invalid CIDR %q", entry)
			}
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return vaulterr.Invalid("ip_whitelist", "invalid IP %q", entry)
		}
	}

	if r.Time == nil {
		return nil
	}
	for _, h := range r.Time.AllowedHours {
		if h < 0 || h > 23 {
			return vaulterr.Invalid("allowed_hours", "hour %d out of range 0-23", h)
		}
	}
	for _, d := range r.Time.AllowedDays {
		if d < 0 || d > 6 {
			return vaulterr.Invalid("allowed_days", "day %d out of range 0-6", d)
		}
	}
	if _, err := loadLocation(r.Time.Timezone); err != nil {
		return vaulterr.Invalid("timezone", "unknown timezone %q", r.Time.Timezone)
	}
	return nil
}
