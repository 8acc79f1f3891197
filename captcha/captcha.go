// Package captcha decides which bot-verification provider gates a form's
// submissions and verifies response tokens against that provider.
package captcha

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mbolis/formforge/model"
	"github.com/pkg/errors"
)

type Provider int

const (
	None Provider = iota
	ReCaptcha
	HCaptcha
	Turnstile
)

func (p Provider) String() string {
	switch p {
	case ReCaptcha:
		return "recaptcha"
	case HCaptcha:
		return "hcaptcha"
	case Turnstile:
		return "turnstile"
	}
	return "none"
}

// fieldTypeProviders is the closed mapping from CAPTCHA field types to
// providers. Unknown types simply don't gate anything.
var fieldTypeProviders = map[model.FieldType]Provider{
	model.FieldRecaptcha: ReCaptcha,
	model.FieldHCaptcha:  HCaptcha,
	model.FieldTurnstile: Turnstile,
}

var verifyURLs = map[Provider]string{
	ReCaptcha: "https://www.google.com/recaptcha/api/siteverify",
	HCaptcha:  "https://hcaptcha.com/siteverify",
	Turnstile: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
}

var scriptURLs = map[Provider]string{
	ReCaptcha: "https://www.google.com/recaptcha/api.js",
	HCaptcha:  "https://js.hcaptcha.com/1/api.js",
	Turnstile: "https://challenges.cloudflare.com/turnstile/v0/api.js",
}

// Keys are one provider's configured credentials. A provider only gates
// submissions when both are non-empty.
type Keys struct {
	SiteKey   string
	SecretKey string
}

type FrontendConfig struct {
	Provider  string `json:"provider"`
	SiteKey   string `json:"siteKey"`
	ScriptURL string `json:"scriptUrl"`
	Theme     string `json:"theme"`
	Size      string `json:"size"`
}

// Verifier checks one provider's response token. Verification is a single
// outbound call bounded by the client timeout; a failed check rejects the
// submission and is never retried.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	IsConfigured() bool
	FrontendConfig() FrontendConfig
}

// Registry owns the constructed verifiers. It is built once at the
// composition root and passed down; there is no package-global state.
type Registry struct {
	verifiers map[Provider]Verifier
}

const verifyTimeout = 10 * time.Second

func NewRegistry(keys map[Provider]Keys) *Registry {
	client := &http.Client{Timeout: verifyTimeout}
	verifiers := map[Provider]Verifier{}
	for provider, url := range verifyURLs {
		verifiers[provider] = &httpVerifier{
			provider:  provider,
			keys:      keys[provider],
			verifyURL: url,
			client:    client,
		}
	}
	return &Registry{verifiers: verifiers}
}

func (r *Registry) Verifier(p Provider) Verifier {
	return r.verifiers[p]
}

// ResolveForForm scans the fields in order for the first CAPTCHA-typed one
// and returns its provider, but only when that provider is fully
// configured. The resolver performs no I/O.
func (r *Registry) ResolveForForm(fields []model.FieldDefinition) Provider {
	for _, f := range fields {
		provider, ok := fieldTypeProviders[f.Type]
		if !ok {
			continue
		}
		if v := r.verifiers[provider]; v != nil && v.IsConfigured() {
			return provider
		}
		return None
	}
	return None
}

// Conflicts reports forms mixing more than one CAPTCHA field type; only
// one provider can gate a given submission.
type Conflicts struct {
	HasConflict bool              `json:"hasConflict"`
	FoundTypes  []model.FieldType `json:"foundTypes,omitempty"`
}

func CheckConflicts(fields []model.FieldDefinition) Conflicts {
	var found []model.FieldType
	for _, f := range fields {
		if _, ok := fieldTypeProviders[f.Type]; !ok {
			continue
		}
		seen := false
		for _, t := range found {
			if t == f.Type {
				seen = true
				break
			}
		}
		if !seen {
			found = append(found, f.Type)
		}
	}
	return Conflicts{HasConflict: len(found) > 1, FoundTypes: found}
}

type httpVerifier struct {
	provider  Provider
	keys      Keys
	verifyURL string
	client    *http.Client
}

func (v *httpVerifier) IsConfigured() bool {
	return v.keys.SiteKey != "" && v.keys.SecretKey != ""
}

func (v *httpVerifier) FrontendConfig() FrontendConfig {
	return FrontendConfig{
		Provider:  v.provider.String(),
		SiteKey:   v.keys.SiteKey,
		ScriptURL: scriptURLs[v.provider],
		Theme:     "light",
		Size:      "normal",
	}
}

func (v *httpVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{
		"secret":   {v.keys.SecretKey},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, errors.Wrapf(err, "%s: new request", v.provider)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, "%s: verify", v.provider)
	}
	defer resp.Body.Close()

	// a provider outage is an error, not a rejection
	if resp.StatusCode != http.StatusOK {
		return false, errors.Errorf("%s: verify: status %d", v.provider, resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, errors.Wrapf(err, "%s: parse response", v.provider)
	}
	return body.Success, nil
}
