package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cbir/internal/gateway"
)

// Failure is a scripted error answer for one operation.
type Failure struct {
	Status  int
	Message string
}

// FeedbackCall is one recorded POST /feedback.
type FeedbackCall struct {
	Filename string
	Feedback string
	Query    string
}

// SentenceCall is one recorded POST /user_sentence.
type SentenceCall struct {
	Filename string
	Sentence string
}

// UploadCall is one recorded POST /upload.
type UploadCall struct {
	Filenames    []string
	SessionToken string
	RedactFaces  bool
	RedactText   bool
}

type storedImage struct {
	name string
	data []byte
}

// Backend is an in-process fake of the retrieval service routed with chi.
// Operations are keyed by the gateway.Op* names.
type Backend struct {
	server *httptest.Server

	mu          sync.Mutex
	calls       map[string]int
	images      []storedImage
	results     map[string][]string
	users       map[string]string
	tokens      map[string]string
	failures    map[string]Failure
	holds       map[string]chan struct{}
	procErrors  []gateway.ProcessingError
	feedback    []FeedbackCall
	sentences   []SentenceCall
	uploads     []UploadCall
	invalidExts map[string]struct{}
}

// NewBackend starts a fake backend and registers its shutdown with t.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		calls:    make(map[string]int),
		results:  make(map[string][]string),
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		failures: make(map[string]Failure),
		holds:    make(map[string]chan struct{}),
		invalidExts: map[string]struct{}{
			".txt": {},
			".pdf": {},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/search", b.handleSearch)
	r.Get("/all_images", b.handleAllImages)
	r.Post("/upload", b.handleUpload)
	r.Post("/feedback", b.handleFeedback)
	r.Post("/user_sentence", b.handleSentence)
	r.Post("/login", b.handleLogin)
	r.Post("/signup", b.handleSignup)
	r.Get("/processing_errors", b.handleProcessingErrors)

	b.server = httptest.NewServer(r)
	t.Cleanup(func() {
		b.releaseAll()
		b.server.Close()
	})
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// AddImage stores an image that list-all returns and searches can match.
func (b *Backend) AddImage(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images = append(b.images, storedImage{name: name, data: data})
}

// SetResults scripts the filenames returned for query. Unscripted queries
// match stored images whose name contains the query text.
func (b *Backend) SetResults(query string, filenames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[query] = filenames
}

// AddUser registers credentials and the token login returns for them. An
// empty token makes login answer without one.
func (b *Backend) AddUser(username, password, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
	b.tokens[username] = token
}

// SetProcessingErrors replaces the errors reported by poll-errors.
func (b *Backend) SetProcessingErrors(errs ...gateway.ProcessingError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.procErrors = append([]gateway.ProcessingError(nil), errs...)
}

// Fail scripts op to answer with status and an {"error": message} body until
// cleared.
func (b *Backend) Fail(op string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = Failure{Status: status, Message: message}
}

// Recover clears a scripted failure.
func (b *Backend) Recover(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, op)
}

// Hold blocks requests for key until the returned release func runs. Keys are
// an operation name, "search:<query>" for one query, or "vote:<filename>".
// Only one hold per key may be outstanding.
func (b *Backend) Hold(key string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[key] = ch
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		current, ok := b.holds[key]
		if ok && current == ch {
			delete(b.holds, key)
		}
		b.mu.Unlock()
		if ok && current == ch {
			close(ch)
		}
	}
}

// Calls returns how many requests reached op.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns how many requests reached the backend.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// Feedback returns the recorded votes.
func (b *Backend) Feedback() []FeedbackCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]FeedbackCall(nil), b.feedback...)
}

// Sentences returns the recorded annotations.
func (b *Backend) Sentences() []SentenceCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentenceCall(nil), b.sentences...)
}

// Uploads returns the recorded upload submissions.
func (b *Backend) Uploads() []UploadCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]UploadCall(nil), b.uploads...)
}

// enter counts the call, waits on any hold for keys, then writes a scripted
// failure if one exists. It reports whether the handler should continue.
func (b *Backend) enter(w http.ResponseWriter, r *http.Request, op string, keys ...string) bool {
	b.mu.Lock()
	b.calls[op]++
	var hold chan struct{}
	for _, key := range append([]string{op}, keys...) {
		if ch, ok := b.holds[key]; ok {
			hold = ch
			break
		}
	}
	b.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return false
		}
	}

	b.mu.Lock()
	failure, failing := b.failures[op]
	b.mu.Unlock()
	if failing {
		writeJSON(w, failure.Status, map[string]string{"error": failure.Message})
		return false
	}
	return true
}

func (b *Backend) releaseAll() {
	b.mu.Lock()
	holds := b.holds
	b.holds = make(map[string]chan struct{})
	b.mu.Unlock()
	for _, ch := range holds {
		close(ch)
	}
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query        string `json:"query"`
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if !b.enter(w, r, gateway.OpSearch, "search:"+payload.Query) {
		return
	}
	if strings.TrimSpace(payload.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query is required."})
		return
	}

	b.mu.Lock()
	names, scripted := b.results[payload.Query]
	var images []storedImage
	if scripted {
		index := make(map[string][]byte, len(b.images))
		for _, img := range b.images {
			index[img.name] = img.data
		}
		for _, name := range names {
			images = append(images, storedImage{name: name, data: index[name]})
		}
	} else {
		needle := strings.ToLower(payload.Query)
		for _, img := range b.images {
			if strings.Contains(strings.ToLower(img.name), needle) {
				images = append(images, img)
			}
		}
	}
	b.mu.Unlock()

	writeImages(w, images)
}

func (b *Backend) handleAllImages(w http.ResponseWriter, r *http.Request) {
	if !b.enter(w, r, gateway.OpListAll) {
		return
	}
	b.mu.Lock()
	images := append([]storedImage(nil), b.images...)
	b.mu.Unlock()
	sort.Slice(images, func(i, j int) bool { return images[i].name < images[j].name })
	writeImages(w, images)
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !b.enter(w, r, gateway.OpUpload) {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files part"})
		return
	}
	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No selected files"})
		return
	}

	call := UploadCall{SessionToken: r.FormValue("session_token")}
	call.RedactFaces, _ = strconv.ParseBool(r.FormValue("redact_faces"))
	call.RedactText, _ = strconv.ParseBool(r.FormValue("redact_text"))

	valid := []string{}
	invalid := []string{}
	b.mu.Lock()
	for _, header := range headers {
		call.Filenames = append(call.Filenames, header.Filename)
		if _, bad := b.invalidExts[strings.ToLower(extension(header.Filename))]; bad {
			invalid = append(invalid, header.Filename)
			continue
		}
		f, err := header.Open()
		if err != nil {
			invalid = append(invalid, header.Filename)
			continue
		}
		data, _ := io.ReadAll(f)
		_ = f.Close()
		b.images = append(b.images, storedImage{name: header.Filename, data: data})
		valid = append(valid, header.Filename)
	}
	b.uploads = append(b.uploads, call)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Files are being processed in the background",
		"valid_files":   valid,
		"invalid_files": invalid,
	})
}

func (b *Backend) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload FeedbackCall
	if err := decodeFields(r, map[string]*string{"filename": &payload.Filename, "feedback": &payload.Feedback, "query": &payload.Query}); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing data"})
		return
	}
	if !b.enter(w, r, gateway.OpVote, "vote:"+payload.Filename) {
		return
	}
	if payload.Filename == "" || payload.Feedback == "" || payload.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing data"})
		return
	}
	b.mu.Lock()
	b.feedback = append(b.feedback, payload)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Feedback received"})
}

func (b *Backend) handleSentence(w http.ResponseWriter, r *http.Request) {
	var payload SentenceCall
	if err := decodeFields(r, map[string]*string{"filename": &payload.Filename, "sentence": &payload.Sentence}); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing filename or sentence"})
		return
	}
	if !b.enter(w, r, gateway.OpAnnotate) {
		return
	}
	if payload.Filename == "" || payload.Sentence == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing filename or sentence"})
		return
	}
	b.mu.Lock()
	b.sentences = append(b.sentences, payload)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sentence received and processed"})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var username, password string
	_ = decodeFields(r, map[string]*string{"username": &username, "password": &password})
	if !b.enter(w, r, gateway.OpLogin) {
		return
	}
	b.mu.Lock()
	want, known := b.users[username]
	token := b.tokens[username]
	b.mu.Unlock()
	if !known || want != password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var username, password string
	_ = decodeFields(r, map[string]*string{"username": &username, "password": &password})
	if !b.enter(w, r, gateway.OpSignup) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[username]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username already exists"})
		return
	}
	b.users[username] = password
	b.tokens[username] = "token-" + username
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created"})
}

func (b *Backend) handleProcessingErrors(w http.ResponseWriter, r *http.Request) {
	if !b.enter(w, r, gateway.OpPollErrors) {
		return
	}
	b.mu.Lock()
	errs := append([]gateway.ProcessingError(nil), b.procErrors...)
	b.mu.Unlock()
	if len(errs) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No errors occurred during processing"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Some images could not be processed",
		"errors":  errs,
	})
}

func decodeFields(r *http.Request, fields map[string]*string) error {
	var raw map[string]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return err
	}
	for key, dst := range fields {
		*dst = raw[key]
	}
	return nil
}

func writeImages(w http.ResponseWriter, images []storedImage) {
	encoded := make([]string, 0, len(images))
	names := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img.data))
		names = append(names, img.name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": encoded, "filenames": names})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func extension(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
