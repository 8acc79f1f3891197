package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/formforge/app"
	"github.com/mbolis/formforge/model"
	"github.com/mbolis/formforge/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get(`/forms/{id:^\d+$}`, PublicGetForm(app))
	api.Post(`/forms/{id:^\d+$}/entries`, SubmitForm(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD forms (fields and options ride along)
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetFormByID(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/forms/{id:^\d+$}`, DeleteForm(app))
		r.Get(`/forms/{id:^\d+$}/captcha`, GetFormCaptcha(app))

		r.Get("/entries", SearchEntries(app))
		r.Get(`/entries/{id:^\d+$}`, GetEntry(app))
		r.Put(`/entries/{id:^\d+$}/status`, UpdateEntryStatus(app))
		r.Put(`/entries/{id:^\d+$}/starred`, StarEntry(app))
		r.Delete(`/entries/{id:^\d+$}`, DeleteEntry(app))

		r.Post("/notifications", CreateNotification(app))
		r.Get("/notifications", SearchNotifications(app))
		r.Get(`/notifications/{id:^\d+$}`, GetNotification(app))
		r.Put(`/notifications/{id:^\d+$}`, UpdateNotification(app))
		r.Delete(`/notifications/{id:^\d+$}`, DeleteNotification(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

// querySpec reads the search/filter/sort/pagination parameters of one
// request. Only the named filter keys are picked up; the store's column
// policy re-checks them against its allow-list anyway.
func querySpec(r *http.Request, filterKeys ...string) model.QuerySpec {
	q := r.URL.Query()
	spec := model.QuerySpec{
		Search:   q.Get("search"),
		Filters:  map[string]string{},
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
		OrderBy:  q.Get("orderBy"),
		Order:    q.Get("order"),
		PerPage:  q.Get("perPage"),
	}
	spec.Page, _ = strconv.Atoi(q.Get("page"))
	for _, key := range filterKeys {
		if v := q.Get(key); v != "" {
			spec.Filters[key] = v
		}
	}
	return spec
}
