package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/formforge/app"
	"github.com/mbolis/formforge/httpx"
	"github.com/mbolis/formforge/log"
)

func SearchEntries(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, meta, err := app.Store.Entries.Search(r.Context(), querySpec(r, "formId", "status", "starred"))
		if err != nil {
			httpx.LogError(w, "db.search_entries", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"entries": entries,
			"meta":    meta,
		})
	}
}

func GetEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		entry, err := app.Store.Entries.Get(r.Context(), entryId)
		if err != nil {
			httpx.LogError(w, "db.get_entry", err)
			return
		}

		render.JSON(w, r, entry)
	}
}

func UpdateEntryStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil || req.Status == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.Entries.UpdateStatus(r.Context(), entryId, req.Status)
		if err != nil {
			httpx.LogError(w, "db.update_entry_status", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func StarEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req struct {
			Starred bool `json:"starred"`
		}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.Entries.SetStarred(r.Context(), entryId, req.Starred)
		if err != nil {
			httpx.LogError(w, "db.star_entry", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Store.Entries.Delete(r.Context(), entryId)
		if err != nil {
			httpx.LogError(w, "db.delete_entry", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
