package routes

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/formforge/app"
	"github.com/mbolis/formforge/captcha"
	"github.com/mbolis/formforge/httpx"
	"github.com/mbolis/formforge/log"
	"github.com/mbolis/formforge/model"
	"github.com/mbolis/formforge/submission"
)

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := app.Store.Forms.Get(r.Context(), formId)
		if err != nil {
			httpx.LogError(w, "db.get_form", err)
			return
		}

		resp := map[string]any{
			"form": form,
		}
		if provider := app.Captcha.ResolveForForm(form.Fields); provider != captcha.None {
			resp["captcha"] = app.Captcha.Verifier(provider).FrontendConfig()
		}
		render.JSON(w, r, resp)
	}
}

type submitRequest struct {
	Fields       model.Payload `json:"fields"`
	CaptchaToken string        `json:"captchaToken"`
	SourceURL    string        `json:"sourceUrl"`
}

func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := submitRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.Store.Forms.Get(r.Context(), formId)
		if err != nil {
			httpx.LogError(w, "db.get_form", err)
			return
		}

		if missing := submission.MissingRequired(form.Fields, req.Fields); len(missing) > 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]any{
				"error":         "missing required fields",
				"missingFields": missing,
			})
			return
		}

		if provider := app.Captcha.ResolveForForm(form.Fields); provider != captcha.None {
			ip := clientIP(r)
			ok, err := app.Captcha.Verifier(provider).Verify(r.Context(), req.CaptchaToken, ip)
			if err != nil {
				log.Errorf("captcha.verify: %s", err)
			}
			if err != nil || !ok {
				httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "captcha.rejected")
				return
			}
		}

		// duplicates are reported, not thrown; rejecting the whole
		// submission is this controller's policy
		report, err := submission.DetectDuplicates(r.Context(), app.Store.Entries, formId, form.Fields, req.Fields)
		if err != nil {
			httpx.LogError(w, "db.duplicate_check", err)
			return
		}
		if report.IsDuplicate {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, map[string]any{
				"error":           "duplicate values",
				"duplicateFields": report.FieldIDs,
			})
			return
		}

		values := submission.Assemble(form.Fields, req.Fields)

		sourceURL := req.SourceURL
		if sourceURL == "" {
			sourceURL = r.Referer()
		}
		entry := &model.Entry{
			FormID:    formId,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			SourceURL: sourceURL,
		}
		entryId, err := app.Store.Entries.Insert(r.Context(), entry, values)
		if err != nil {
			httpx.LogError(w, "db.insert_entry", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": entryId,
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
