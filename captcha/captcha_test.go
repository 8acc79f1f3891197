package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mbolis/formforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveForForm(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		ReCaptcha: {SiteKey: "site", SecretKey: "secret"},
	})

	fields := []model.FieldDefinition{
		{ID: 1, Type: model.FieldText},
		{ID: 2, Type: model.FieldRecaptcha},
	}
	assert.Equal(t, ReCaptcha, registry.ResolveForForm(fields))
}

func TestResolveForForm_UnconfiguredProvider(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		ReCaptcha: {SiteKey: "site", SecretKey: "secret"},
	})

	fields := []model.FieldDefinition{{ID: 1, Type: model.FieldHCaptcha}}
	assert.Equal(t, None, registry.ResolveForForm(fields))
}

func TestResolveForForm_PartialKeysNotConfigured(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		Turnstile: {SiteKey: "site"},
	})

	fields := []model.FieldDefinition{{ID: 1, Type: model.FieldTurnstile}}
	assert.Equal(t, None, registry.ResolveForForm(fields))
}

func TestResolveForForm_NoCaptchaField(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		ReCaptcha: {SiteKey: "site", SecretKey: "secret"},
	})

	fields := []model.FieldDefinition{{ID: 1, Type: model.FieldText}}
	assert.Equal(t, None, registry.ResolveForForm(fields))
}

func TestResolveForForm_FirstCaptchaFieldWins(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		HCaptcha:  {SiteKey: "site", SecretKey: "secret"},
		Turnstile: {SiteKey: "site", SecretKey: "secret"},
	})

	fields := []model.FieldDefinition{
		{ID: 1, Type: model.FieldTurnstile},
		{ID: 2, Type: model.FieldHCaptcha},
	}
	assert.Equal(t, Turnstile, registry.ResolveForForm(fields))
}

func TestCheckConflicts(t *testing.T) {
	conflicts := CheckConflicts([]model.FieldDefinition{
		{ID: 1, Type: model.FieldRecaptcha},
		{ID: 2, Type: model.FieldText},
		{ID: 3, Type: model.FieldTurnstile},
		{ID: 4, Type: model.FieldRecaptcha},
	})
	assert.True(t, conflicts.HasConflict)
	assert.Equal(t, []model.FieldType{model.FieldRecaptcha, model.FieldTurnstile}, conflicts.FoundTypes)

	conflicts = CheckConflicts([]model.FieldDefinition{
		{ID: 1, Type: model.FieldRecaptcha},
		{ID: 2, Type: model.FieldRecaptcha},
	})
	assert.False(t, conflicts.HasConflict, "repeats of one type are not a conflict")

	conflicts = CheckConflicts([]model.FieldDefinition{{ID: 1, Type: model.FieldText}})
	assert.False(t, conflicts.HasConflict)
	assert.Empty(t, conflicts.FoundTypes)
}

func TestFrontendConfig(t *testing.T) {
	registry := NewRegistry(map[Provider]Keys{
		HCaptcha: {SiteKey: "hc-site", SecretKey: "hc-secret"},
	})

	cfg := registry.Verifier(HCaptcha).FrontendConfig()
	assert.Equal(t, "hcaptcha", cfg.Provider)
	assert.Equal(t, "hc-site", cfg.SiteKey)
	assert.Equal(t, "https://js.hcaptcha.com/1/api.js", cfg.ScriptURL)
	// the secret never leaves the server
	assert.NotContains(t, []string{cfg.SiteKey, cfg.ScriptURL, cfg.Theme, cfg.Size}, "hc-secret")
}

func testVerifier(t *testing.T, handler http.HandlerFunc) *httpVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &httpVerifier{
		provider:  ReCaptcha,
		keys:      Keys{SiteKey: "site", SecretKey: "secret"},
		verifyURL: srv.URL,
		client:    srv.Client(),
	}
}

func TestVerify(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok", r.PostForm.Get("response"))
		assert.Equal(t, "1.2.3.4", r.PostForm.Get("remoteip"))
		w.Write([]byte(`{"success":true}`))
	})

	ok, err := v.Verify(context.Background(), "tok", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_Rejected(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})

	ok, err := v.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_OmitsEmptyRemoteIP(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["remoteip"]
		assert.False(t, present)
		w.Write([]byte(`{"success":true}`))
	})

	ok, err := v.Verify(context.Background(), "tok", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_ProviderOutage(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false,"error-codes":["internal-error"]}`))
	})

	ok, err := v.Verify(context.Background(), "tok", "")
	assert.ErrorContains(t, err, "status 502")
	assert.False(t, ok)
}

func TestVerify_MalformedResponse(t *testing.T) {
	v := testVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	ok, err := v.Verify(context.Background(), "tok", "")
	assert.Error(t, err)
	assert.False(t, ok)
}
