package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSegment struct {
	ID      string  `json:"id"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

type fakeTranscript struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt string        `json:"created_at"`
	Segments  []fakeSegment `json:"segments"`
}

type textChanges struct {
	SegmentIDs []string `json:"segment_ids"`
	OldTexts   []string `json:"old_texts"`
	NewTexts   []string `json:"new_texts"`
}

type speakerRename struct {
	SegmentID string `json:"segment_id"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
}

// fakeServices plays the auth and transcription services over HTTP.
type fakeServices struct {
	mu          sync.Mutex
	transcripts map[string]*fakeTranscript
	deleteFail  map[string]bool
	textCalls   []textChanges
	speakerReqs []speakerRename
	uploads     []string
	logouts     int
	taskStatus  string
	taskError   string
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		transcripts: map[string]*fakeTranscript{
			"t1": {
				ID: "t1", Name: "Interview", CreatedAt: "2024-05-01T09:00:00Z",
				Segments: []fakeSegment{{ID: "s1", Speaker: "A", Start: 0, End: 1.5, Text: "hello"}},
			},
			"t2": {
				ID: "t2", Name: "Board meeting", CreatedAt: "2024-04-30T09:00:00Z",
				Segments: []fakeSegment{
					{ID: "a", Speaker: "A", Start: 0, End: 1, Text: "one"},
					{ID: "b", Speaker: "C", Start: 1, End: 2, Text: "two"},
					{ID: "c", Speaker: "A", Start: 2, End: 3, Text: "three"},
				},
			},
			"t3": {ID: "t3", Name: "Standup", CreatedAt: "2024-04-29T09:00:00Z"},
		},
		deleteFail: map[string]bool{},
		taskStatus: "done",
	}
}

func (f *fakeServices) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad credentials"})
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]string{"access_token": "access-1", "refresh_token": "refresh-1"})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]string{})
	})
	mux.HandleFunc("GET /transcriptions", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]fakeTranscript, 0, len(f.transcripts))
		for _, tr := range f.transcripts {
			out = append(out, *tr)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeFakeJSON(w, http.StatusOK, out)
	}))
	mux.HandleFunc("GET /transcriptions/{id}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		tr, ok := f.transcripts[r.PathValue("id")]
		if !ok {
			writeFakeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		writeFakeJSON(w, http.StatusOK, tr)
	}))
	mux.HandleFunc("PUT /transcriptions/{id}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if tr, ok := f.transcripts[r.PathValue("id")]; ok {
			tr.Name = body["name"]
		}
		writeFakeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("DELETE /transcriptions/{id}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if f.deleteFail[id] {
			writeFakeJSON(w, http.StatusInternalServerError, map[string]string{"message": "delete failed"})
			return
		}
		delete(f.transcripts, id)
		writeFakeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /rename_transcribed_text/{id}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		var body textChanges
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.textCalls = append(f.textCalls, body)
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /rename_segments/{id}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		var body speakerRename
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.speakerReqs = append(f.speakerReqs, body)
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /process-audio/", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)
		f.mu.Lock()
		f.uploads = append(f.uploads, header.Filename)
		n := len(f.uploads)
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]any{"task_id": n})
	}))
	mux.HandleFunc("GET /process-status/{task}", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]any{
			"status":           f.taskStatus,
			"progress":         100,
			"transcription_id": 42,
			"error":            f.taskError,
		})
	}))
	return mux
}

func (f *fakeServices) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		next(w, r)
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cliTestEnv struct {
	services   *fakeServices
	server     *httptest.Server
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	services := newFakeServices()
	server := httptest.NewServer(services.handler())
	t.Cleanup(server.Close)

	base := t.TempDir()
	configPath := filepath.Join(base, "config.yaml")
	config := fmt.Sprintf(`services:
  auth_url: %[1]s
  diarization_url: %[1]s
session:
  token_file: %[2]s
storage:
  temp_dir: %[3]s
  output_dir: %[4]s
  database: %[5]s
library:
  row_height: 50
  viewport_height: 100
workers:
  poll_interval_seconds: 1
google_drive:
  credentials_file: %[6]s
`, server.URL,
		filepath.Join(base, "data", "session.json"),
		filepath.Join(base, "temp"),
		filepath.Join(base, "outputs"),
		filepath.Join(base, "data", "console.db"),
		filepath.Join(base, "missing-credentials.json"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	return &cliTestEnv{
		services:   services,
		server:     server,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, configPath, "", args...)
}

func runCLIWithInput(t *testing.T, configPath, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) login(t *testing.T) {
	t.Helper()
	_, _, err := runCLI(t, e.configPath, "login", "--username", "ana", "--password", "secret")
	require.NoError(t, err)
}

func (f *fakeServices) transcriptName(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.transcripts[id]
	if !ok {
		return "", false
	}
	return tr.Name, true
}

func (f *fakeServices) failDelete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteFail[id] = true
}

func (f *fakeServices) setTask(status, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskStatus = status
	f.taskError = errMsg
}

func (f *fakeServices) recorded() (texts []textChanges, speakers []speakerRename, uploads []string, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]textChanges(nil), f.textCalls...),
		append([]speakerRename(nil), f.speakerReqs...),
		append([]string(nil), f.uploads...),
		f.logouts
}

func (f *fakeServices) resetSpeakers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speakerReqs = nil
}
