package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"studi/internal/db"
	"studi/internal/extract"
	"studi/internal/models"
	"studi/internal/quiz"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
	gob.Register(UserProfile{})
}

// fakeStore is an in-memory Store that also satisfies quiz.ResultSaver.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	files   map[uuid.UUID]models.StudyFile
	results []models.QuizResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]models.User),
		files: make(map[uuid.UUID]models.StudyFile),
	}
}

func (f *fakeStore) CreateLocalUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[email]; exists {
		return models.User{}, db.ErrEmailTaken
	}
	u := models.User{ID: uuid.New(), Email: email, Name: name, PasswordHash: passwordHash}
	f.users[email] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, exists := f.users[email]
	if !exists {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpsertGoogleUser(ctx context.Context, email, name, googleID, picture string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, exists := f.users[email]
	if !exists {
		u = models.User{ID: uuid.New(), Email: email, Name: name}
	}
	u.GoogleID = googleID
	u.Picture = picture
	f.users[email] = u
	return u, nil
}

func (f *fakeStore) InsertFile(ctx context.Context, file models.StudyFile) (models.StudyFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file.ID = uuid.New()
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeStore) ListFiles(ctx context.Context, userID uuid.UUID) ([]models.StudyFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StudyFile
	for _, file := range f.files {
		if file.UserID == userID {
			file.FileData = nil
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeStore) GetFile(ctx context.Context, fileID, userID uuid.UUID) (models.StudyFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, exists := f.files[fileID]
	if !exists || file.UserID != userID {
		return models.StudyFile{}, models.ErrNotFound
	}
	return file, nil
}

func (f *fakeStore) RenameFile(ctx context.Context, fileID, userID uuid.UUID, displayName string) (models.StudyFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, exists := f.files[fileID]
	if !exists || file.UserID != userID {
		return models.StudyFile{}, models.ErrNotFound
	}
	file.DisplayName = displayName
	f.files[fileID] = file
	return file, nil
}

func (f *fakeStore) DeleteFiles(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for _, id := range fileIDs {
		if file, exists := f.files[id]; exists && file.UserID == userID {
			delete(f.files, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) ListResults(ctx context.Context, userID uuid.UUID, fileID *uuid.UUID) ([]models.QuizResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QuizResult
	for _, r := range f.results {
		if r.UserID != userID {
			continue
		}
		if fileID != nil && r.FileID != *fileID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) SaveResult(ctx context.Context, r models.QuizResult) (models.QuizResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	f.results = append(f.results, r)
	return r, nil
}

// fakeGenerator returns a canned quiz and chat reply.
type fakeGenerator struct {
	quiz  *models.Quiz
	reply string
	err   error
}

func (f *fakeGenerator) GenerateQuiz(ctx context.Context, text, fileName string, length int, difficulty models.Difficulty) (*models.Quiz, error) {
	if f.err != nil {
		return nil, f.err
	}
	qz := *f.quiz
	qz.FileName = fileName
	return &qz, nil
}

func (f *fakeGenerator) Chat(ctx context.Context, fileName, fileContent, message string, history []models.ChatTurn) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func cannedQuiz() *models.Quiz {
	return &models.Quiz{
		Questions: []models.Question{
			{ID: 1, Text: "What is 2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswers: []int{1}, Type: models.QuestionTypeSingle},
			{ID: 2, Text: "What is 1+1?", Options: []string{"1", "2", "3", "4"}, CorrectAnswers: []int{1}, Type: models.QuestionTypeSingle},
		},
	}
}

func newTestServer(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	generator := &fakeGenerator{quiz: cannedQuiz(), reply: "The answer is four."}
	manager := quiz.NewManager(store)
	handler := NewHandler(nil, store, generator, nil, manager)

	router := gin.New()
	router.Use(sessions.Sessions("studi_session", cookie.NewStore([]byte("test-secret"))))
	SetupRoutes(router, handler)
	return router, store
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, router *gin.Engine) []*http.Cookie {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/auth/signup", gin.H{
		"email":    "student@example.com",
		"name":     "Student",
		"password": "correct horse",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func uploadFile(t *testing.T, router *gin.Engine, cookies []*http.Cookie, content string) uuid.UUID {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/files", gin.H{
		"fileName": "notes.txt",
		"fileType": extract.MIMEPlainText,
		"data":     base64.StdEncoding.EncodeToString([]byte(content)),
	}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body: %s", w.Code, w.Body.String())
	}
	var file models.StudyFile
	if err := json.Unmarshal(w.Body.Bytes(), &file); err != nil {
		t.Fatal(err)
	}
	return file.ID
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestServer(t)
	w := doRequest(t, router, http.MethodGet, "/api/files", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSignupAndLogin(t *testing.T) {
	router, _ := newTestServer(t)
	cookies := signup(t, router)

	// Duplicate signup is rejected.
	w := doRequest(t, router, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "student@example.com", "name": "Student", "password": "correct horse",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", w.Code)
	}

	// Wrong password.
	w = doRequest(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email": "student@example.com", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}

	// Correct password.
	w = doRequest(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email": "Student@Example.com", "password": "correct horse",
	}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("login status = %d, body: %s", w.Code, w.Body.String())
	}

	// The signup cookie authenticates API calls.
	w = doRequest(t, router, http.MethodGet, "/api/auth/status", nil, cookies)
	if w.Code != http.StatusOK {
		t.Errorf("auth status = %d, want 200", w.Code)
	}
	w = doRequest(t, router, http.MethodGet, "/api/user/profile", nil, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "student@example.com") {
		t.Errorf("profile = %d %s", w.Code, w.Body.String())
	}
}

func TestUploadValidation(t *testing.T) {
	router, _ := newTestServer(t)
	cookies := signup(t, router)

	// Blocked MIME type.
	w := doRequest(t, router, http.MethodPost, "/api/files", gin.H{
		"fileName": "slides.pdf",
		"fileType": extract.MIMEPDF,
		"data":     base64.StdEncoding.EncodeToString([]byte("x")),
	}, cookies)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("blocked type status = %d, want 415", w.Code)
	}

	// Over the size cap.
	w = doRequest(t, router, http.MethodPost, "/api/files", gin.H{
		"fileName": "big.txt",
		"fileType": extract.MIMEPlainText,
		"data":     base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("a"), maxUploadBytes+1)),
	}, cookies)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized status = %d, want 413", w.Code)
	}
}

func TestFileLifecycle(t *testing.T) {
	router, _ := newTestServer(t)
	cookies := signup(t, router)
	fileID := uploadFile(t, router, cookies, "The mitochondria is the powerhouse of the cell.")

	// List.
	w := doRequest(t, router, http.MethodGet, "/api/files", nil, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), fileID.String()) {
		t.Errorf("list = %d %s", w.Code, w.Body.String())
	}

	// Rename.
	w = doRequest(t, router, http.MethodPatch, "/api/files/"+fileID.String(), gin.H{"displayName": "Biology notes"}, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Biology notes") {
		t.Errorf("rename = %d %s", w.Code, w.Body.String())
	}

	// Extraction preview.
	w = doRequest(t, router, http.MethodPost, "/api/files/"+fileID.String()+"/extract", nil, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mitochondria") {
		t.Errorf("extract = %d %s", w.Code, w.Body.String())
	}

	// Delete.
	w = doRequest(t, router, http.MethodDelete, "/api/files", gin.H{"fileIds": []string{fileID.String()}}, cookies)
	if w.Code != http.StatusOK {
		t.Errorf("delete = %d %s", w.Code, w.Body.String())
	}
	w = doRequest(t, router, http.MethodGet, "/api/files/"+fileID.String(), nil, cookies)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestQuizSessionFlow(t *testing.T) {
	router, store := newTestServer(t)
	cookies := signup(t, router)
	fileID := uploadFile(t, router, cookies, "Arithmetic basics.")

	// Start a session.
	w := doRequest(t, router, http.MethodPost, "/api/quiz/sessions", gin.H{
		"fileId": fileID.String(), "length": 5, "difficulty": "easy",
	}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session = %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "correctAnswers") {
		t.Errorf("session view leaks answer keys: %s", w.Body.String())
	}

	var view quiz.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.State != quiz.StateActive || view.TotalQuestions != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	base := "/api/quiz/sessions/" + view.ID.String()

	// Answer both questions correctly.
	for i := 0; i < 2; i++ {
		w = doRequest(t, router, http.MethodPost, base+"/answers", gin.H{"optionIndex": 1}, cookies)
		if w.Code != http.StatusOK {
			t.Fatalf("answer = %d %s", w.Code, w.Body.String())
		}
		w = doRequest(t, router, http.MethodPost, base+"/next", nil, cookies)
		if w.Code != http.StatusOK {
			t.Fatalf("next = %d %s", w.Code, w.Body.String())
		}
	}

	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.State != quiz.StateResults || view.Outcome == nil {
		t.Fatalf("expected results state with outcome, got %+v", view)
	}
	if view.Outcome.Score != 2 || view.Outcome.Percentage != 100 {
		t.Errorf("outcome = %+v, want 2/2", view.Outcome)
	}

	// The result was persisted and is listed.
	if len(store.results) != 1 {
		t.Fatalf("persisted %d results, want 1", len(store.results))
	}
	w = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/quiz/results?fileId=%s", fileID), nil, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"score":2`) {
		t.Errorf("results = %d %s", w.Code, w.Body.String())
	}
}

func TestQuitDiscardsSession(t *testing.T) {
	router, store := newTestServer(t)
	cookies := signup(t, router)
	fileID := uploadFile(t, router, cookies, "Arithmetic basics.")

	w := doRequest(t, router, http.MethodPost, "/api/quiz/sessions", gin.H{"fileId": fileID.String()}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session = %d %s", w.Code, w.Body.String())
	}
	var view quiz.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}

	w = doRequest(t, router, http.MethodDelete, "/api/quiz/sessions/"+view.ID.String(), nil, cookies)
	if w.Code != http.StatusNoContent {
		t.Fatalf("quit = %d %s", w.Code, w.Body.String())
	}
	if len(store.results) != 0 {
		t.Errorf("quit persisted %d results, want 0", len(store.results))
	}
	w = doRequest(t, router, http.MethodGet, "/api/quiz/sessions/"+view.ID.String(), nil, cookies)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after quit = %d, want 404", w.Code)
	}
}

func TestChat(t *testing.T) {
	router, _ := newTestServer(t)
	cookies := signup(t, router)
	fileID := uploadFile(t, router, cookies, "Two plus two equals four.")

	w := doRequest(t, router, http.MethodPost, "/api/chat", gin.H{
		"fileId":  fileID.String(),
		"message": "What is 2+2?",
		"history": []models.ChatTurn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	}, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "The answer is four.") {
		t.Errorf("chat = %d %s", w.Code, w.Body.String())
	}
}
