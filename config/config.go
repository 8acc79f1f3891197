package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool
	Captcha     CaptchaConfig
}

// CaptchaConfig holds the per-provider credentials. A provider with an
// empty site or secret key is treated as not configured.
type CaptchaConfig struct {
	RecaptchaSiteKey string
	RecaptchaSecret  string
	HCaptchaSiteKey  string
	HCaptchaSecret   string
	TurnstileSiteKey string
	TurnstileSecret  string
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "formforge.sqlite", "path to SQLite3 DB file (default formforge.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds (default 120)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	flag.StringVar(&cfg.Captcha.RecaptchaSiteKey, "recaptcha-site-key", "", "reCAPTCHA site key")
	flag.StringVar(&cfg.Captcha.RecaptchaSecret, "recaptcha-secret", "", "reCAPTCHA secret key")
	flag.StringVar(&cfg.Captcha.HCaptchaSiteKey, "hcaptcha-site-key", "", "hCaptcha site key")
	flag.StringVar(&cfg.Captcha.HCaptchaSecret, "hcaptcha-secret", "", "hCaptcha secret key")
	flag.StringVar(&cfg.Captcha.TurnstileSiteKey, "turnstile-site-key", "", "Turnstile site key")
	flag.StringVar(&cfg.Captcha.TurnstileSecret, "turnstile-secret", "", "Turnstile secret key")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
