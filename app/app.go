package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/formforge/captcha"
	"github.com/mbolis/formforge/config"
	"github.com/mbolis/formforge/store"
)

// App is the service composition root: every controller receives one and
// reaches its collaborators through it. The CAPTCHA registry lives here,
// constructed once from config, instead of behind a package global.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Store   *store.Store
	Captcha *captcha.Registry
}

func New(db *sql.DB, bearerServer *oauth.BearerServer, cfg config.Config) App {
	return App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Store:        store.New(db),
		Captcha: captcha.NewRegistry(map[captcha.Provider]captcha.Keys{
			captcha.ReCaptcha: {SiteKey: cfg.Captcha.RecaptchaSiteKey, SecretKey: cfg.Captcha.RecaptchaSecret},
			captcha.HCaptcha:  {SiteKey: cfg.Captcha.HCaptchaSiteKey, SecretKey: cfg.Captcha.HCaptchaSecret},
			captcha.Turnstile: {SiteKey: cfg.Captcha.TurnstileSiteKey, SecretKey: cfg.Captcha.TurnstileSecret},
		}),
	}
}
