package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/formforge/app"
	"github.com/mbolis/formforge/httpx"
	"github.com/mbolis/formforge/log"
	"github.com/mbolis/formforge/model"
)

func CreateNotification(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notification := model.Notification{}
		err := render.DecodeJSON(r.Body, &notification)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		id, err := app.Store.Notifications.Create(r.Context(), &notification)
		if err != nil {
			httpx.LogError(w, "db.create_notification", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": id,
		})
	}
}

func SearchNotifications(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notifications, meta, err := app.Store.Notifications.Search(r.Context(), querySpec(r, "formId", "status"))
		if err != nil {
			httpx.LogError(w, "db.search_notifications", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"notifications": notifications,
			"meta":          meta,
		})
	}
}

func GetNotification(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		notification, err := app.Store.Notifications.Get(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "db.get_notification", err)
			return
		}

		render.JSON(w, r, notification)
	}
}

func UpdateNotification(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		notification := model.Notification{}
		err = render.DecodeJSON(r.Body, &notification)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		notification.ID = id

		err = app.Store.Notifications.Update(r.Context(), &notification)
		if err != nil {
			httpx.LogError(w, "db.update_notification", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteNotification(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Store.Notifications.Delete(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "db.delete_notification", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
