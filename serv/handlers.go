package serv

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/gooofy/quadstore/mirror"
	"github.com/gooofy/quadstore/result"
	"github.com/gooofy/quadstore/sparql/parser"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok")) //nolint:errcheck
}

// queryRequest is the POST /api/v1/query body: a raw SPARQL SELECT string.
type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	algebra, err := parser.Parse(req.Query)
	if err != nil {
		http.Error(w, "parsing query: "+err.Error(), http.StatusBadRequest)
		return
	}

	compileCtx, compileSpan := startSpan(r.Context(), "compile")
	compiled, err := s.comp.CompileCachedTiered(s.cache, s.remoteCache, algebra)
	compileSpan.End()
	if err != nil {
		http.Error(w, "compiling query: "+err.Error(), http.StatusBadRequest)
		return
	}

	execCtx, execSpan := startSpan(compileCtx, "execute")
	rows, err := s.store.DB().QueryContext(execCtx, compiled.SQL, compiled.Args...)
	execSpan.End()
	if err != nil {
		http.Error(w, "running query: "+err.Error(), http.StatusInternalServerError)
		return
	}

	res, err := result.FromRows(rows, compiled)
	if err != nil {
		http.Error(w, "materializing result: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(res) //nolint:errcheck
}

// mirrorRequest is the POST /api/v1/mirror body: the same shape cmd_mirror.go's
// --paths YAML file decodes to, plus the target graph. A seed is either a
// bare resource ({"resource": "wd:Q42"}) or a (predicate, object) pattern
// ({"predicate": "...", "object": "..."}); transform steps aren't
// expressible over JSON and remain a mirror.New API-only capability.
type mirrorRequest struct {
	Context string `json:"context"`
	Paths   []struct {
		Start []struct {
			Resource  string `json:"resource"`
			Predicate string `json:"predicate"`
			Object    string `json:"object"`
		} `json:"start"`
		Steps []struct {
			Predicate string `json:"predicate"`
			Wildcard  bool   `json:"wildcard"`
		} `json:"steps"`
	} `json:"paths"`
}

func (s *Server) mirrorHandler(w http.ResponseWriter, r *http.Request) {
	var req mirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	paths := make([]mirror.ResourcePath, len(req.Paths))
	for i, p := range req.Paths {
		paths[i].Start = make([]mirror.Seed, len(p.Start))
		for j, sd := range p.Start {
			paths[i].Start[j] = mirror.Seed{Resource: sd.Resource, Predicate: sd.Predicate, Object: sd.Object}
		}
		for _, st := range p.Steps {
			paths[i].Steps = append(paths[i].Steps, mirror.PathStep{Predicate: st.Predicate, Wildcard: st.Wildcard})
		}
	}

	s.mirror.SetProgress(s.hub.broadcast)
	if err := s.mirror.Mirror(r.Context(), paths, req.Context); err != nil {
		http.Error(w, "mirroring: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, "mirror job completed\n") //nolint:errcheck
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressHandler upgrades to a websocket and streams mirror job progress
// lines to the client until it disconnects.
func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %s", err)
		return
	}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
