package nsotest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"
)

const yangDataJSON = "application/yang-data+json"

// RESTCONFHandler serves the mock's /restconf tree: CRUD on the data
// resources plus a JSON notification stream.
type RESTCONFHandler struct {
	store    *Store
	logger   *logrus.Entry
	username string
	password string
	http.Handler
}

// NewRESTCONFHandler builds the RESTCONF router. When username is
// empty, authentication is not enforced.
func NewRESTCONFHandler(store *Store, username, password string, logger *logrus.Entry) *RESTCONFHandler {
	h := &RESTCONFHandler{
		store:    store,
		logger:   logger,
		username: username,
		password: password,
	}
	r := chi.NewRouter()
	r.Use(h.authenticate)
	r.Route("/restconf", func(r chi.Router) {
		r.Post("/data/*", h.create)
		r.Get("/data/*", h.read)
		r.Patch("/data/*", h.update)
		r.Put("/data/*", h.set)
		r.Delete("/data/*", h.delete)
		r.Post("/operations/*", h.action)
		r.Get("/streams/{stream}/json", h.stream)
	})
	h.Handler = r
	return h
}

func (h *RESTCONFHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != h.username || pass != h.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="restconf"`)
				h.errorReply(w, http.StatusUnauthorized, "access denied")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *RESTCONFHandler) create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorReply(w, http.StatusBadRequest, "malformed body")
		return
	}
	path := chi.URLParam(r, "*")
	if !h.store.Create(path, string(body)) {
		h.errorReply(w, http.StatusConflict, "data already exists")
		return
	}
	w.Header().Set("Location", r.URL.Path)
	w.WriteHeader(http.StatusCreated)
}

func (h *RESTCONFHandler) read(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.Get(chi.URLParam(r, "*"))
	if !ok {
		h.errorReply(w, http.StatusNotFound, "uri keypath not found")
		return
	}
	w.Header().Set("Content-Type", yangDataJSON)
	fmt.Fprint(w, doc)
}

func (h *RESTCONFHandler) update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorReply(w, http.StatusBadRequest, "malformed body")
		return
	}
	if !h.store.Update(chi.URLParam(r, "*"), string(body)) {
		h.errorReply(w, http.StatusNotFound, "uri keypath not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTCONFHandler) set(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorReply(w, http.StatusBadRequest, "malformed body")
		return
	}
	h.store.Set(chi.URLParam(r, "*"), string(body))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTCONFHandler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(chi.URLParam(r, "*")) {
		h.errorReply(w, http.StatusNotFound, "uri keypath not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTCONFHandler) action(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", yangDataJSON)
	fmt.Fprint(w, `{"output": {"result": "true"}}`)
}

// stream serves server-sent events until the client goes away. One
// synthetic notification per interval keeps stream readers busy.
func (h *RESTCONFHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorReply(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	name := chi.URLParam(r, "stream")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": stream ready\n\n")
	flusher.Flush()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	seq := 0
	for {
		select {
		case <-r.Context().Done():
			return
		case t := <-ticker.C:
			seq++
			event := map[string]interface{}{
				"ietf-restconf:notification": map[string]interface{}{
					"eventTime": t.UTC().Format(time.RFC3339Nano),
					"stream":    name,
					"sequence":  seq,
				},
			}
			payload, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// errorReply writes an ietf-restconf errors document.
func (h *RESTCONFHandler) errorReply(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", yangDataJSON)
	w.WriteHeader(status)
	reply := map[string]interface{}{
		"ietf-restconf:errors": map[string]interface{}{
			"error": []map[string]string{{
				"error-type":    "application",
				"error-tag":     "operation-failed",
				"error-message": message,
			}},
		},
	}
	_ = json.NewEncoder(w).Encode(reply)
}
