package zepp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bnema/zepp-steps-cli/internal/adapters/transport"
	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/log"
)

const (
	appPackage    = "com.xiaomi.hm.health"
	webAppPackage = "com.huami.webapp"
	appVersion    = "6.14.0"
	appBuild      = "50818"

	// The app-token endpoint is the one leg the app performs with its iOS
	// identity.
	appTokenUserAgent = "MiFit/5.3.0 (iPhone; iOS 14.7.1; Scale/3.00)"

	redirectURI = "https://s3-us-west-2.amazonaws.com/hm-registration/successsignin.html"

	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"

	maxBodyBytes = 1 << 20
	errorSnippet = 200
)

// Client drives the remote service's multi-host API: login, registration,
// image challenges, telemetry uploads and the binding flow.
type Client struct {
	http *transport.Client
	eps  Endpoints
	log  zerolog.Logger

	now        func() time.Time
	newID      func() string
	randSuffix func() string
}

func NewClient(httpc *transport.Client, eps Endpoints) *Client {
	return &Client{
		http:       httpc,
		eps:        eps,
		log:        log.WithComponent("zepp"),
		now:        time.Now,
		newID:      uuid.NewString,
		randSuffix: challengeSuffix,
	}
}

// Login performs the three-leg authentication flow: an encrypted credential
// exchange for an access code, the code for a login token, and the login
// token for an app token. The returned session carries the device identity
// the tokens were issued against.
func (c *Client) Login(ctx context.Context, identity domain.Identity, password string) (*domain.Session, error) {
	deviceID := c.newID()
	c.log.Debug().Str("account", identity.Masked()).Str("device_id", deviceID).Msg("starting login")

	code, err := c.fetchAccessCode(ctx, identity, password)
	if err != nil {
		return nil, err
	}

	userID, loginToken, err := c.fetchLoginToken(ctx, identity, code, deviceID)
	if err != nil {
		return nil, err
	}

	appToken, err := c.fetchAppToken(ctx, loginToken)
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("account", identity.Masked()).Str("user_id", userID).Msg("login succeeded")

	return &domain.Session{
		DeviceID:   deviceID,
		UserID:     userID,
		LoginToken: loginToken,
		AppToken:   appToken,
		ObtainedAt: c.now(),
	}, nil
}

func (c *Client) fetchAccessCode(ctx context.Context, identity domain.Identity, password string) (string, error) {
	form := url.Values{}
	form.Set("emailOrPhone", identity.Value)
	form.Set("password", password)
	form.Set("state", "REDIRECTION")
	form.Set("client_id", "HuaMi")
	form.Set("country_code", "CN")
	form.Set("token", "access")
	form.Set("redirect_uri", redirectURI)

	body, err := encryptLoginPayload([]byte(form.Encode()))
	if err != nil {
		return "", err
	}

	h := http.Header{}
	h.Set("Content-Type", formContentType)
	h.Set("app_name", appPackage)
	h.Set("appname", appPackage)
	h.Set("appplatform", "android_phone")
	h.Set("x-hm-ekv", "1")
	h.Set("hm-privacy-ceip", "false")

	resp, err := c.http.Do(ctx, http.MethodPost, c.eps.Auth+"/v2/registrations/tokens", transport.RequestOptions{
		Header:   h,
		Body:     body,
		UseProxy: true,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusSeeOther {
		return "", &ProtocolError{Step: "access-code", Status: resp.StatusCode, Message: snippet(resp.Body)}
	}

	code := extractAccessCode(resp.Header.Get("Location"))
	if code == "" {
		return "", &ProtocolError{Step: "access-code", Status: resp.StatusCode, Message: "redirect carried no access code"}
	}
	return code, nil
}

func (c *Client) fetchLoginToken(ctx context.Context, identity domain.Identity, code, deviceID string) (string, string, error) {
	form := url.Values{}
	form.Set("app_name", appPackage)
	form.Set("app_version", appVersion)
	form.Set("code", code)
	form.Set("country_code", "CN")
	form.Set("device_id", deviceID)
	form.Set("grant_type", "access_token")

	if identity.IsPhone() {
		form.Set("device_model", "phone")
		form.Set("third_name", "huami_phone")
	} else {
		form.Set("allow_registration", "false")
		form.Set("device_model", "android_phone")
		form.Set("dn", "account.zepp.com,api-user.zepp.com,api-mifit.zepp.com,api-watch.zepp.com")
		form.Set("lang", "zh_CN")
		form.Set("os_version", "1.5.0")
		form.Set("source", appPackage+":"+appVersion+":"+appBuild)
		form.Set("third_name", "email")
	}

	h := http.Header{}
	h.Set("Content-Type", formContentType)
	h.Set("app_name", appPackage)
	h.Set("appname", appPackage)
	h.Set("appplatform", "android_phone")
	h.Set("x-request-id", c.newID())
	h.Set("accept-language", "zh-CN")
	h.Set("cv", appBuild+"_"+appVersion)
	h.Set("v", "2.0")

	resp, err := c.http.Do(ctx, http.MethodPost, c.eps.Account+"/v2/client/login", transport.RequestOptions{
		Header:   h,
		Body:     []byte(form.Encode()),
		UseProxy: true,
	})
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed struct {
		TokenInfo *struct {
			LoginToken string   `json:"login_token"`
			UserID     remoteID `json:"user_id"`
		} `json:"token_info"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return "", "", &ProtocolError{Step: "login-token", Status: resp.StatusCode, Message: err.Error()}
	}
	if parsed.TokenInfo == nil || parsed.TokenInfo.LoginToken == "" {
		return "", "", &ProtocolError{Step: "login-token", Status: resp.StatusCode, Message: truncate(raw)}
	}

	return parsed.TokenInfo.UserID.String(), parsed.TokenInfo.LoginToken, nil
}

// remoteID decodes an identifier the service serialises as a JSON number on
// some endpoint revisions and as a JSON string on others.
type remoteID string

func (id *remoteID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*id = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		*id = remoteID(unquoted)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = remoteID(n.String())
	return nil
}

func (id remoteID) String() string { return string(id) }

func (c *Client) fetchAppToken(ctx context.Context, loginToken string) (string, error) {
	u := c.eps.AccountCN + "/v1/client/app_tokens" +
		"?app_name=" + appPackage +
		"&dn=api-user.huami.com,api-mifit.huami.com,app-analytics.huami.com" +
		"&login_token=" + url.QueryEscape(loginToken)

	h := http.Header{}
	h.Set("User-Agent", appTokenUserAgent)

	resp, err := c.http.Do(ctx, http.MethodGet, u, transport.RequestOptions{Header: h, UseProxy: true})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed struct {
		TokenInfo *struct {
			AppToken string `json:"app_token"`
		} `json:"token_info"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return "", &ProtocolError{Step: "app-token", Status: resp.StatusCode, Message: err.Error()}
	}
	if parsed.TokenInfo == nil || parsed.TokenInfo.AppToken == "" {
		return "", &ProtocolError{Step: "app-token", Status: resp.StatusCode, Message: truncate(raw)}
	}
	return parsed.TokenInfo.AppToken, nil
}

// SubmitSteps uploads a one-day telemetry payload recording the given step
// total for today. A 401 or 403 maps to ErrAuthExpired so callers can
// re-login and retry.
func (c *Client) SubmitSteps(ctx context.Context, session *domain.Session, steps int) (string, error) {
	if !domain.ValidSteps(steps) {
		return "", fmt.Errorf("step count %d outside accepted range [%d, %d]", steps, domain.MinSteps, domain.MaxSteps)
	}

	now := c.now()
	body, err := encodeSubmissionForm(session.UserID, steps, now.Format(domain.DateLayout), now)
	if err != nil {
		return "", err
	}

	h := http.Header{}
	h.Set("apptoken", session.AppToken)
	h.Set("Content-Type", "application/x-www-form-urlencoded")

	u := fmt.Sprintf("%s/v1/data/band_data.json?&t=%d", c.eps.Data, now.UnixMilli())
	resp, err := c.http.Do(ctx, http.MethodPost, u, transport.RequestOptions{
		Header:   h,
		Body:     []byte(body),
		UseProxy: true,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrAuthExpired
	}

	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return "", &ProtocolError{Step: "submit", Status: resp.StatusCode, Message: err.Error()}
	}

	if parsed.Code == 1 || parsed.Message == "ok" || parsed.Message == "success" {
		c.log.Info().Str("user_id", session.UserID).Int("steps", steps).Msg("steps accepted")
		return parsed.Message, nil
	}
	return "", &ProtocolError{Step: "submit", Status: resp.StatusCode, Message: truncate(raw)}
}

// FetchChallenge retrieves a fresh image challenge of the given kind. The
// challenge endpoints are sensitive to worn proxy exits, so a new lease is
// taken before every fetch.
func (c *Client) FetchChallenge(ctx context.Context, kind string) (*domain.Challenge, error) {
	c.http.AcquireLease(ctx)

	u := fmt.Sprintf("%s/captcha/%s?random=%s", c.eps.User, kind, c.randSuffix())
	resp, err := c.http.Do(ctx, http.MethodGet, u, transport.RequestOptions{
		UseProxy:          true,
		RotateOnRateLimit: true,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Step: "challenge", Status: resp.StatusCode, Message: snippet(resp.Body)}
	}

	key := challengeKey(resp.Header)
	if key == "" {
		return nil, &ProtocolError{Step: "challenge", Status: resp.StatusCode, Message: "response carried no challenge key"}
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read challenge image: %w", err)
	}

	return &domain.Challenge{
		Kind:      kind,
		Key:       key,
		Image:     image,
		FetchedAt: c.now(),
	}, nil
}

// VerifyChallenge submits a solution for server-side validation without
// consuming it in a registration.
func (c *Client) VerifyChallenge(ctx context.Context, kind, key, code string) error {
	u := fmt.Sprintf("%s/captcha/%s?key=%s&code=%s", c.eps.User, kind, url.QueryEscape(key), url.QueryEscape(code))
	resp, err := c.http.Do(ctx, http.MethodPost, u, transport.RequestOptions{UseProxy: true})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &ProtocolError{Step: "challenge-verify", Status: resp.StatusCode, Message: snippet(resp.Body)}
	}
	return nil
}

// RegisterAccount creates a new remote account using a solved challenge. It
// returns the access code issued for the fresh account.
func (c *Client) RegisterAccount(ctx context.Context, identity domain.Identity, password, name, challengeKey, challengeCode string) (string, error) {
	pathIdentity := identity.Value
	if identity.IsPhone() {
		pathIdentity = url.QueryEscape(pathIdentity)
	}

	form := url.Values{}
	form.Set("app_name", webAppPackage)
	form.Set("country_code", "CN")
	form.Set("countryState", "")
	form.Set("password", password)
	form.Set("name", name)
	form.Set("code", challengeCode)
	form.Set("key", challengeKey)
	form.Set("client_id", "HuaMi")
	form.Set("redirect_uri", redirectURI)
	form.Set("state", "REDIRECTION")
	form.Set("token", "access")
	form.Set("json_response", "true")

	h := http.Header{}
	h.Set("app_name", webAppPackage)
	h.Set("Content-Type", formContentType)

	resp, err := c.http.Do(ctx, http.MethodPost, c.eps.User+"/registrations/"+pathIdentity, transport.RequestOptions{
		Header:            h,
		Body:              []byte(form.Encode()),
		UseProxy:          true,
		RotateOnRateLimit: true,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &ProtocolError{Step: "register", Status: resp.StatusCode, Message: snippet(resp.Body)}
	}

	var parsed struct {
		Data string `json:"data"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return "", &ProtocolError{Step: "register", Status: resp.StatusCode, Message: err.Error()}
	}
	if parsed.Data == "" {
		return "", &ProtocolError{Step: "register", Status: resp.StatusCode, Message: truncate(raw)}
	}

	redirect, err := url.Parse(parsed.Data)
	if err != nil {
		return "", &ProtocolError{Step: "register", Status: resp.StatusCode, Message: "unparseable redirect: " + truncate(parsed.Data)}
	}
	accessCode := redirect.Query().Get("access")
	if accessCode == "" {
		return "", &ProtocolError{Step: "register", Status: resp.StatusCode, Message: "redirect carried no access code"}
	}

	if err := c.confirmRegistration(ctx, accessCode); err != nil {
		return "", err
	}

	c.log.Info().Str("account", identity.Masked()).Msg("account registered")
	return accessCode, nil
}

func (c *Client) confirmRegistration(ctx context.Context, accessCode string) error {
	form := url.Values{}
	form.Set("app_name", webAppPackage)
	form.Set("app_version", "4.3.0")
	form.Set("code", accessCode)
	form.Set("countryState", "")
	form.Set("country_code", "CN")
	form.Set("device_id", "02:00:00:00:00:00")
	form.Set("device_model", "web")
	form.Set("grant_type", "access_token")
	form.Set("third_name", "huami")

	h := http.Header{}
	h.Set("app_name", webAppPackage)
	h.Set("Content-Type", formContentType)

	resp, err := c.http.Do(ctx, http.MethodPost, c.eps.Account+"/v1/client/register", transport.RequestOptions{
		Header:   h,
		Body:     []byte(form.Encode()),
		UseProxy: true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &ProtocolError{Step: "register-confirm", Status: resp.StatusCode, Message: snippet(resp.Body)}
	}

	var parsed struct {
		Result    string          `json:"result"`
		TokenInfo json.RawMessage `json:"token_info"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return &ProtocolError{Step: "register-confirm", Status: resp.StatusCode, Message: err.Error()}
	}
	if parsed.Result != "ok" || len(parsed.TokenInfo) == 0 {
		return &ProtocolError{Step: "register-confirm", Status: resp.StatusCode, Message: truncate(raw)}
	}
	return nil
}

// GetBindTicket requests a binding ticket for the messaging-platform flow.
// The ticket is rendered as a QR code the user scans with the companion app.
func (c *Client) GetBindTicket(ctx context.Context, userID string) (string, error) {
	u := c.eps.Bind + "/v1/bind/qrcode.json?wxname=md&brandName=amazfit&userid=" + url.QueryEscape(userID)

	resp, err := c.http.Do(ctx, http.MethodGet, u, transport.RequestOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed struct {
		Code int `json:"code"`
		Data struct {
			Ticket string `json:"ticket"`
		} `json:"data"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return "", &ProtocolError{Step: "bind-ticket", Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK || parsed.Code != 1 || parsed.Data.Ticket == "" {
		return "", &ProtocolError{Step: "bind-ticket", Status: resp.StatusCode, Message: truncate(raw)}
	}
	return parsed.Data.Ticket, nil
}

// CheckBindStatus reports whether the account has completed the binding flow.
func (c *Client) CheckBindStatus(ctx context.Context, userID string) (bool, error) {
	u := c.eps.Bind + "/v1/info/users.json?wxname=md&userid=" + url.QueryEscape(userID)

	resp, err := c.http.Do(ctx, http.MethodGet, u, transport.RequestOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed struct {
		Code int `json:"code"`
		Data struct {
			IsBind int `json:"isbind"`
		} `json:"data"`
	}
	raw, err := decodeJSON(resp.Body, &parsed)
	if err != nil {
		return false, &ProtocolError{Step: "bind-status", Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK || parsed.Code != 1 {
		return false, &ProtocolError{Step: "bind-status", Status: resp.StatusCode, Message: truncate(raw)}
	}
	return parsed.Data.IsBind == 1, nil
}

// challengeKey finds the challenge key in response headers, falling back to
// the Set-Cookie form some deployments use.
func challengeKey(h http.Header) string {
	if key := h.Get("Captcha-Key"); key != "" {
		return key
	}
	for _, cookie := range h.Values("Set-Cookie") {
		const marker = "captcha-key="
		idx := strings.Index(strings.ToLower(cookie), marker)
		if idx < 0 {
			continue
		}
		value := cookie[idx+len(marker):]
		if end := strings.Index(value, ";"); end >= 0 {
			value = value[:end]
		}
		if value != "" {
			return value
		}
	}
	return ""
}

// challengeSuffix produces the two-letter two-digit cache buster the app
// appends to challenge fetches.
func challengeSuffix() string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := []byte{
		letters[rand.Intn(len(letters))],
		letters[rand.Intn(len(letters))],
		byte('0' + rand.Intn(10)),
		byte('0' + rand.Intn(10)),
	}
	return string(b)
}

func decodeJSON(r io.Reader, v any) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return string(raw), fmt.Errorf("decode response: %s", truncate(string(raw)))
	}
	return string(raw), nil
}

func snippet(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, errorSnippet))
	return string(raw)
}

func truncate(s string) string {
	if len(s) > errorSnippet {
		return s[:errorSnippet]
	}
	return s
}
