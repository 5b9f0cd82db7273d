package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/auth"
	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/service"
)

// ResourceHandler exposes one lifecycle service over HTTP. The same handler
// serves book-users, links, and poems; only the mounted prefix differs.
type ResourceHandler struct {
	svc    *service.LifecycleService
	logger zerolog.Logger
}

// NewResourceHandler creates a handler for a lifecycle service.
func NewResourceHandler(svc *service.LifecycleService, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		svc:    svc,
		logger: logger.With().Str("handler", svc.Definition().Name).Logger(),
	}
}

// RegisterRoutes mounts the full CRUD plus lifecycle surface.
// Callers wrap the router with the authentication middleware.
func (h *ResourceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/restore", h.restore)
}

// RegisterPublicRoutes mounts the unauthenticated read-only surface.
// Only active records are visible here.
func (h *ResourceHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/public", h.listPublic)
	r.Get("/get/{id}", h.getPublic)
}

func (h *ResourceHandler) create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.svc.Create(r.Context(), payload, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": h.svc.Definition().Name + " created successfully",
		"data":    sanitize(doc),
	})
}

func (h *ResourceHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    sanitize(doc),
	})
}

func (h *ResourceHandler) getPublic(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    sanitize(doc),
	})
}

func (h *ResourceHandler) list(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, false)
}

func (h *ResourceHandler) listPublic(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, true)
}

func (h *ResourceHandler) serveList(w http.ResponseWriter, r *http.Request, public bool) {
	in := listInput(r, h.svc.Definition().Collection.SearchField)
	if public {
		// Public listings never expose inactive records.
		active := true
		in.IsActive = &active
	}

	out, err := h.svc.List(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	records := make([]domain.Document, 0, len(out.Records))
	for _, doc := range out.Records {
		records = append(records, sanitize(doc))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"data":       records,
		"pagination": out.Pagination,
	})
}

func (h *ResourceHandler) update(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), payload, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeMutation(w, "updated", doc)
}

func (h *ResourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeMutation(w, "deleted", doc)
}

func (h *ResourceHandler) restore(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Restore(r.Context(), chi.URLParam(r, "id"), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeMutation(w, "restored", doc)
}

func (h *ResourceHandler) writeMutation(w http.ResponseWriter, verb string, doc domain.Document) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": h.svc.Definition().Name + " " + verb + " successfully",
		"result":  sanitize(doc),
	})
}

// listInput parses the listing query parameters. The search parameter is
// named after the resource's designated text field ("name" for users,
// "title" for links and poems); "search" is accepted as an alias.
// Unparsable numbers fall back to the service defaults.
func listInput(r *http.Request, searchField string) service.ListInput {
	q := r.URL.Query()
	in := service.ListInput{
		Search: q.Get(searchField),
		Sort:   q.Get("sort"),
	}
	if in.Search == "" {
		in.Search = q.Get("search")
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		in.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		in.Limit = limit
	}
	if raw := q.Get("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			in.IsActive = &active
		}
	}
	return in
}

// sanitize strips the password hash before a record leaves the API.
// Only user records carry one; for the rest this is a no-op clone.
func sanitize(doc domain.Document) domain.Document {
	if _, ok := doc[domain.FieldPasswordHash]; !ok {
		return doc
	}
	clean := doc.Clone()
	delete(clean, domain.FieldPasswordHash)
	return clean
}
