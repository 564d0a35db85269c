// Package remotetest provides an in-process fake Kinto-protocol HTTP
// server for driving Collection Core integration tests without a real
// Kinto deployment.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Server is a minimal Kinto-protocol server: one in-memory collection of
// records keyed by (bucket, collection), supporting GET .../records,
// POST /batch and GET .../collections/{c}.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	records      map[string]map[string]map[string]any // bucket/collection -> id -> record
	lastModified map[string]int64                     // bucket/collection -> high watermark
	clock        int64
	batchMax     int
}

// New starts a fake server listening on a local port.
func New() *Server {
	s := &Server{
		records:      make(map[string]map[string]map[string]any),
		lastModified: make(map[string]int64),
		batchMax:     25,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleServerInfo).Methods(http.MethodGet)
	r.HandleFunc("/buckets/{bucket}/collections/{collection}", s.handleCollectionMetadata).Methods(http.MethodGet)
	r.HandleFunc("/buckets/{bucket}/collections/{collection}/records", s.handleListRecords).Methods(http.MethodGet)
	r.HandleFunc("/batch", s.handleBatch).Methods(http.MethodPost)

	s.Server = httptest.NewServer(handlers.LoggingHandler(logWriter{}, r))
	return s
}

// URL returns the server's base URL, suitable for remote.HTTPFacadeOptions.BaseURL.
func (s *Server) URL() string {
	return s.Server.URL
}

func (s *Server) key(bucket, collection string) string {
	return bucket + "/" + collection
}

func (s *Server) nextTimestamp() int64 {
	s.clock++
	return s.clock
}

// Seed directly inserts a record as if it had been PUT by some other
// client, bumping the collection's last_modified watermark.
func (s *Server) Seed(bucket, collection string, rec map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(bucket, collection, rec)
}

func (s *Server) put(bucket, collection string, rec map[string]any) map[string]any {
	coll := s.key(bucket, collection)
	if s.records[coll] == nil {
		s.records[coll] = make(map[string]map[string]any)
	}
	ts := s.nextTimestamp()
	rec["last_modified"] = ts
	id, _ := rec["id"].(string)
	s.records[coll][id] = rec
	if ts > s.lastModified[coll] {
		s.lastModified[coll] = ts
	}
	return rec
}

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": map[string]any{"batch_max_requests": s.batchMax},
	})
}

func (s *Server) handleCollectionMetadata(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"id": vars["collection"]},
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	coll := s.key(vars["bucket"], vars["collection"])
	since, _ := strconv.ParseInt(r.URL.Query().Get("_since"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, rec := range s.records[coll] {
		if lm, _ := rec["last_modified"].(int64); lm > since {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, _ := out[i]["last_modified"].(int64)
		lj, _ := out[j]["last_modified"].(int64)
		return li < lj
	})

	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(s.lastModified[coll], 10)))
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requests []struct {
			Method  string            `json:"method"`
			Path    string            `json:"path"`
			Headers map[string]string `json:"headers"`
			Body    map[string]any    `json:"body"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	responses := make([]map[string]any, 0, len(req.Requests))
	for _, op := range req.Requests {
		bucket, collection, id := parsePath(op.Path)
		coll := s.key(bucket, collection)
		if s.records[coll] == nil {
			s.records[coll] = make(map[string]map[string]any)
		}

		switch op.Method {
		case http.MethodDelete:
			existing, ok := s.records[coll][id]
			if !ok {
				responses = append(responses, map[string]any{"status": http.StatusNotFound, "body": map[string]any{}})
				continue
			}
			if !preconditionOK(op.Headers, existing) {
				responses = append(responses, map[string]any{"status": http.StatusPreconditionFailed, "body": existing})
				continue
			}
			delete(s.records[coll], id)
			ts := s.nextTimestamp()
			s.lastModified[coll] = ts
			responses = append(responses, map[string]any{"status": http.StatusOK, "body": map[string]any{"id": id, "deleted": true, "last_modified": ts}})

		default: // PUT / POST create-or-update
			existing, exists := s.records[coll][id]
			if exists && !preconditionOK(op.Headers, existing) {
				responses = append(responses, map[string]any{"status": http.StatusPreconditionFailed, "body": existing})
				continue
			}
			body := op.Body
			if body == nil {
				body = map[string]any{}
			}
			body["id"] = id
			rec := s.put(bucket, collection, body)
			status := http.StatusOK
			if !exists {
				status = http.StatusCreated
			}
			responses = append(responses, map[string]any{"status": status, "body": rec})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

func preconditionOK(headers map[string]string, existing map[string]any) bool {
	ifMatch, ok := headers["If-Match"]
	if !ok {
		return true
	}
	want, err := strconv.Unquote(ifMatch)
	if err != nil {
		want = ifMatch
	}
	existingLM, _ := existing["last_modified"].(int64)
	return strconv.FormatInt(existingLM, 10) == want
}

func parsePath(path string) (bucket, collection, id string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// /buckets/{bucket}/collections/{collection}/records/{id}
	for i := 0; i < len(parts)-1; i++ {
		switch parts[i] {
		case "buckets":
			bucket = parts[i+1]
		case "collections":
			collection = parts[i+1]
		case "records":
			id = parts[i+1]
		}
	}
	return
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) { return len(p), nil }
