package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// tokenAuthority mints bearer tokens that expire after a fixed number
// of requests, which is enough to force the client through its
// refresh-and-retry path.
type tokenAuthority struct {
	mu      sync.Mutex
	current string
	uses    int
	maxUses int
	serial  int
}

func newTokenAuthority(maxUses int) *tokenAuthority {
	ta := &tokenAuthority{maxUses: maxUses}
	ta.mint()
	return ta
}

func (ta *tokenAuthority) mint() string {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	ta.serial++
	ta.current = fmt.Sprintf("demo-token-%d", ta.serial)
	ta.uses = 0
	return ta.current
}

func (ta *tokenAuthority) currentToken() string {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return ta.current
}

func (ta *tokenAuthority) validate(token string) bool {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	if token != ta.current || ta.uses >= ta.maxUses {
		return false
	}
	ta.uses++
	return true
}

// record is the backend's storage shape; the client sees it as a
// generic resource.
type record struct {
	ID   int            `json:"id"`
	Data map[string]any `json:"-"`
}

func (r record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		obj[k] = v
	}
	obj["id"] = r.ID
	return json.Marshal(obj)
}

type backend struct {
	authority *tokenAuthority

	mu      sync.Mutex
	records []record
	nextID  int
}

func newBackendHandler(authority *tokenAuthority) http.Handler {
	b := &backend{authority: authority, nextID: 100}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /records", b.auth(b.list))
	mux.HandleFunc("POST /records", b.auth(b.create))
	mux.HandleFunc("PATCH /records/{id}", b.auth(b.update))
	mux.HandleFunc("DELETE /records/{id}", b.auth(b.destroy))
	return mux
}

func (b *backend) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !b.authority.validate(token) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *backend) list(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.records)
}

func (b *backend) create(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []string{"body must be a JSON object"}})
		return
	}
	if name, _ := data["name"].(string); name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []string{"name can't be blank"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	created := record{ID: b.nextID, Data: data}
	b.records = append(b.records, created)
	writeJSON(w, http.StatusCreated, created)
}

func (b *backend) update(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []string{"body must be a JSON object"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if fmt.Sprint(b.records[i].ID) == r.PathValue("id") {
			for k, v := range data {
				b.records[i].Data[k] = v
			}
			writeJSON(w, http.StatusOK, b.records[i])
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *backend) destroy(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if fmt.Sprint(b.records[i].ID) == r.PathValue("id") {
			b.records = append(b.records[:i], b.records[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		_ = err
	}
}
