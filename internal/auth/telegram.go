// Package auth identifies Telegram Mini App users from the initData string
// the Telegram client hands to the WebApp.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"biteindex/internal/types"
)

// webAppDataKey keys the HMAC that derives the initData secret from the bot
// token.
const webAppDataKey = "WebAppData"

// TelegramUser is the "user" object embedded in initData.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// InitData is the verified content of an initData string.
type InitData struct {
	User     TelegramUser
	AuthDate time.Time
	QueryID  string
	Signed   bool
}

// TelegramConfig configures TelegramAuthenticator.
type TelegramConfig struct {
	BotToken types.SecretString
	MaxAge   time.Duration
	// AllowUnverified accepts unsigned initData and requests without any
	// credential. Never enable outside local development.
	AllowUnverified bool
	DemoUserID      string
	Clock           types.Clock
}

// TelegramAuthenticator implements core.Authenticator and
// core.AnonymousAuthenticator for Telegram WebApp initData.
type TelegramAuthenticator struct {
	secret          []byte
	maxAge          time.Duration
	allowUnverified bool
	demoUserID      string
	clock           types.Clock
}

// NewTelegramAuthenticator derives the HMAC secret from the bot token. A bot
// token is mandatory unless unverified access is allowed.
func NewTelegramAuthenticator(cfg TelegramConfig) (*TelegramAuthenticator, error) {
	if !cfg.BotToken.IsSet() && !cfg.AllowUnverified {
		return nil, errors.New("telegram bot token is required when unverified access is disabled")
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.DemoUserID == "" {
		cfg.DemoUserID = "demo_user"
	}

	var secret []byte
	if cfg.BotToken.IsSet() {
		secret = hmacSHA256([]byte(webAppDataKey), []byte(cfg.BotToken.Unmask()))
	}

	return &TelegramAuthenticator{
		secret:          secret,
		maxAge:          cfg.MaxAge,
		allowUnverified: cfg.AllowUnverified,
		demoUserID:      cfg.DemoUserID,
		clock:           cfg.Clock,
	}, nil
}

// ResolveToken parses and verifies raw initData and returns the user it
// names.
func (a *TelegramAuthenticator) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	data, err := a.Parse(token)
	if err != nil {
		return nil, err
	}

	return &types.Actor{
		ID:       strconv.FormatInt(data.User.ID, 10),
		Type:     types.ActorTypeUser,
		Username: data.User.Username,
		Source:   types.ActorSourceTelegram,
		Verified: data.Signed,
	}, nil
}

// AnonymousActor returns the shared demo identity when unverified access is
// allowed, nil otherwise.
func (a *TelegramAuthenticator) AnonymousActor() *types.Actor {
	if !a.allowUnverified {
		return nil
	}
	return &types.Actor{
		ID:     a.demoUserID,
		Type:   types.ActorTypeUser,
		Source: types.ActorSourceDemo,
	}
}

// Parse validates the initData signature and freshness.
func (a *TelegramAuthenticator) Parse(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, invalid("init data is not a valid query string", err)
	}

	hash := values.Get("hash")
	signed := hash != ""
	switch {
	case !signed && !a.allowUnverified:
		return nil, invalid("init data is not signed", nil)
	case signed && a.secret == nil && !a.allowUnverified:
		return nil, invalid("init data cannot be verified", nil)
	case signed && a.secret != nil:
		if !a.validHash(values, hash) {
			return nil, invalid("init data signature mismatch", nil)
		}
	case signed:
		// No bot token in demo mode: the hash cannot be checked.
		signed = false
	}

	data := &InitData{QueryID: values.Get("query_id"), Signed: signed}

	if rawUser := values.Get("user"); rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
			return nil, invalid("init data user is malformed", err)
		}
	}
	if data.User.ID == 0 {
		return nil, invalid("init data has no user", nil)
	}

	if rawDate := values.Get("auth_date"); rawDate != "" {
		secs, err := strconv.ParseInt(rawDate, 10, 64)
		if err != nil {
			return nil, invalid("init data auth_date is malformed", err)
		}
		data.AuthDate = time.Unix(secs, 0).UTC()
	} else if signed {
		return nil, invalid("init data has no auth_date", nil)
	}

	if signed && a.maxAge > 0 && a.clock.Now().Sub(data.AuthDate) > a.maxAge {
		return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "init data has expired", nil)
	}

	return data, nil
}

func (a *TelegramAuthenticator) validHash(values url.Values, hash string) bool {
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	got := hmacSHA256(a.secret, []byte(DataCheckString(values)))
	return hmac.Equal(got, want)
}

// DataCheckString joins every field except hash as sorted "key=value" lines.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

// Sign computes the hash Telegram would attach to values for botToken.
// Used by tests and the local demo client.
func Sign(values url.Values, botToken string) string {
	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(DataCheckString(values))))
}

func hmacSHA256(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)
}

func invalid(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeAuthTokenInvalid, msg, err)
}
