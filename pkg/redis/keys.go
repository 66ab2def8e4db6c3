package redis

import (
	"strconv"
	"strings"
)

// Every key the storefront writes lives under sf:<kind>:...
const keyNamespace = "sf"

const (
	kindIdempotency  = "idempotency"
	kindRateLimit    = "rate_limit"
	kindCounter      = "counter"
	kindCart         = "cart"
	kindCartSelected = "cart_selected"
	kindSMSCode      = "sms"
	kindSMSFlag      = "sms_flag"
	kindRevoked      = "revoked"
	kindLock         = "lock"
	kindHistory      = "history"
)

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key(kindIdempotency, scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key(kindRateLimit, scope) }

func (c *Client) CounterKey(name string) string { return key(kindCounter, name) }

// CartKey is the hash of sku id to quantity for one user.
func (c *Client) CartKey(userID int64) string {
	return key(kindCart, strconv.FormatInt(userID, 10))
}

// CartSelectedKey is the set of selected sku ids for one user.
func (c *Client) CartSelectedKey(userID int64) string {
	return key(kindCartSelected, strconv.FormatInt(userID, 10))
}

// SMSCodeKey holds the outstanding verification code for a mobile number.
func (c *Client) SMSCodeKey(mobile string) string { return key(kindSMSCode, mobile) }

// SMSFlagKey marks a mobile number as recently messaged.
func (c *Client) SMSFlagKey(mobile string) string { return key(kindSMSFlag, mobile) }

// RevokedTokenKey marks an access token id as signed out.
func (c *Client) RevokedTokenKey(jti string) string { return key(kindRevoked, jti) }

// LockKey names a distributed lock, e.g. sf:lock:cron-worker:prod.
func (c *Client) LockKey(owner, env string) string { return key(kindLock, owner, env) }

// BrowseHistoryKey is the list of a user's recently viewed sku ids, newest first.
func (c *Client) BrowseHistoryKey(userID int64) string {
	return key(kindHistory, strconv.FormatInt(userID, 10))
}
