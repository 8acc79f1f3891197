package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/formforge/app"
	"github.com/mbolis/formforge/captcha"
	"github.com/mbolis/formforge/field"
	"github.com/mbolis/formforge/httpx"
	"github.com/mbolis/formforge/log"
	"github.com/mbolis/formforge/model"
)

// formRequest carries a form plus its raw field list; fields only become
// FieldDefinitions after the factory validates them during the save.
type formRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Fields      []field.Raw `json:"fields"`
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := formRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form := &model.Form{Title: req.Title, Description: req.Description, Status: req.Status}
		formId, err := app.Store.Forms.Create(r.Context(), form, req.Fields)
		if err != nil {
			httpx.LogError(w, "db.create_form", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": formId,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, meta, err := app.Store.Forms.Search(r.Context(), querySpec(r, "status"))
		if err != nil {
			httpx.LogError(w, "db.search_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
			"meta":  meta,
		})
	}
}

func GetFormByID(app app.App) http.HandlerFunc {
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

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := formRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form := &model.Form{ID: formId, Title: req.Title, Description: req.Description, Status: req.Status}
		err = app.Store.Forms.Update(r.Context(), form, req.Fields)
		if err != nil {
			httpx.LogError(w, "db.update_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Store.Forms.Delete(r.Context(), formId)
		if err != nil {
			httpx.LogError(w, "db.delete_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetFormCaptcha reports which provider gates the form's submissions and
// whether the form mixes conflicting CAPTCHA field types.
func GetFormCaptcha(app app.App) http.HandlerFunc {
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

		render.JSON(w, r, map[string]any{
			"provider":  app.Captcha.ResolveForForm(form.Fields).String(),
			"conflicts": captcha.CheckConflicts(form.Fields),
		})
	}
}
