package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vocaroom/internal/service"
	"vocaroom/internal/store"
)

func newTestHandler() (*ClassroomHandler, *store.MemoryStore) {
	memory := store.NewMemoryStore(24*time.Hour, 3)
	manager := service.NewManager(memory, nil)
	email, _ := service.NewEmailService("", "", "", "")
	return NewClassroomHandler(manager, memory, nil, email, 5<<20), memory
}

func newTestMux(h *ClassroomHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /classroom/create", h.Create)
	mux.HandleFunc("POST /classroom/join", h.Join)
	mux.HandleFunc("POST /classroom/api/session/start", h.StartSession)
	mux.HandleFunc("POST /classroom/api/session/end", h.EndSession)
	mux.HandleFunc("GET /classroom/api/leaderboard/{code}", h.Leaderboard)
	mux.HandleFunc("GET /classroom/api/status/{code}/{name}", h.StudentStatus)
	mux.HandleFunc("POST /classroom/api/word/swap", h.SwapWords)
	mux.HandleFunc("POST /classroom/api/word/practice", h.RecordPractice)
	mux.HandleFunc("POST /classroom/api/word/remove/request", h.RequestRemoveWord)
	mux.HandleFunc("POST /classroom/api/word/remove/vote", h.VoteRemoveWord)
	mux.HandleFunc("GET /classroom/api/word/remove/list/{code}", h.ListRemoveRequests)
	mux.HandleFunc("GET /classroom/api/word/remove/{code}/{requestId}", h.GetRemoveRequest)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body map[string]interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, parsed
}

func getJSON(t *testing.T, mux *http.ServeMux, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, parsed
}

func createClassroom(t *testing.T, mux *http.ServeMux, name, words string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("classroomName", name)
	fw, _ := mw.CreateFormFile("file", "words.txt")
	fw.Write([]byte(words))
	mw.Close()

	req := httptest.NewRequest("POST", "/classroom/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var parsed map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &parsed)
	code, _ := parsed["code"].(string)
	if code == "" {
		t.Fatalf("create response has no code: %s", rec.Body.String())
	}
	return code
}

func TestCreateClassroomEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("classroomName", "Unit 1")
	fw, _ := mw.CreateFormFile("file", "words.txt")
	fw.Write([]byte("Cat, dog\nfish"))
	mw.Close()

	req := httptest.NewRequest("POST", "/classroom/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var parsed map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &parsed)
	if parsed["success"] != true {
		t.Error("expected success")
	}
	if parsed["wordCount"] != float64(3) {
		t.Errorf("wordCount = %v, want 3", parsed["wordCount"])
	}
	if parsed["mode"] != "memory" {
		t.Errorf("mode = %v, want memory", parsed["mode"])
	}
}

func TestCreateClassroomRejectsMissingFields(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "words.txt")
	fw.Write([]byte("cat"))
	mw.Close()

	req := httptest.NewRequest("POST", "/classroom/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}

	// Empty word list
	var buf2 bytes.Buffer
	mw2 := multipart.NewWriter(&buf2)
	mw2.WriteField("classroomName", "Unit 1")
	fw2, _ := mw2.CreateFormFile("file", "words.txt")
	fw2.Write([]byte("12345 !!!"))
	mw2.Close()

	req2 := httptest.NewRequest("POST", "/classroom/create", &buf2)
	req2.Header.Set("Content-Type", mw2.FormDataContentType())
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusBadRequest {
		t.Errorf("wordless file: status = %d, want 400", rec2.Code)
	}
	if !strings.Contains(rec2.Body.String(), "No words found") {
		t.Errorf("wordless file: body = %s", rec2.Body.String())
	}
}

func TestJoinAndStatus(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat dog fish")

	rec, parsed := postJSON(t, mux, "/classroom/join", map[string]interface{}{
		"code": code, "studentName": "Alice",
	})
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("join failed: %d %s", rec.Code, rec.Body.String())
	}

	rec, parsed = getJSON(t, mux, "/classroom/api/status/"+code+"/Alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d", rec.Code)
	}
	status := parsed["status"].(map[string]interface{})
	if status["name"] != "Alice" || status["rank"] != float64(1) {
		t.Errorf("status = %v", status)
	}

	// Unknown classroom is a 404
	rec, _ = postJSON(t, mux, "/classroom/join", map[string]interface{}{
		"code": "ZZZZ", "studentName": "Alice",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: status = %d, want 404", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat")
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Alice"})

	// Ending without a session fails
	rec, _ := postJSON(t, mux, "/classroom/api/session/end", map[string]interface{}{
		"code": code, "studentName": "Alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("end without start: status = %d, want 400", rec.Code)
	}

	rec, _ = postJSON(t, mux, "/classroom/api/session/start", map[string]interface{}{
		"code": code, "studentName": "Alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d", rec.Code)
	}

	rec, parsed := postJSON(t, mux, "/classroom/api/session/end", map[string]interface{}{
		"code": code, "studentName": "Alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("end failed: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := parsed["duration"].(float64); !ok {
		t.Errorf("end response missing duration: %v", parsed)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat")
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Alice"})
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Bob"})

	rec, parsed := getJSON(t, mux, "/classroom/api/leaderboard/"+code)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard failed: %d", rec.Code)
	}
	board := parsed["leaderboard"].([]interface{})
	if len(board) != 2 {
		t.Errorf("leaderboard size = %d, want 2", len(board))
	}

	rec, _ = getJSON(t, mux, "/classroom/api/leaderboard/ZZZZ")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: status = %d, want 404", rec.Code)
	}
}

func TestSwapEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat dog fish")
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Alice"})
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Bob"})

	rec, _ := postJSON(t, mux, "/classroom/api/word/swap", map[string]interface{}{
		"code": code, "studentA": "Alice", "wordA": "cat", "studentB": "Bob", "wordB": "fish",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("swap failed: %d %s", rec.Code, rec.Body.String())
	}

	// Alice no longer holds cat, so a second identical swap must fail
	rec, parsed := postJSON(t, mux, "/classroom/api/word/swap", map[string]interface{}{
		"code": code, "studentA": "Alice", "wordA": "cat", "studentB": "Bob", "wordB": "fish",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid swap: status = %d, want 400", rec.Code)
	}
	if msg, _ := parsed["error"].(string); !strings.Contains(msg, "does not own") {
		t.Errorf("invalid swap error = %q", msg)
	}

	// Missing parameters
	rec, _ = postJSON(t, mux, "/classroom/api/word/swap", map[string]interface{}{
		"code": code, "studentA": "Alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing params: status = %d, want 400", rec.Code)
	}
}

func TestPracticeEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat dog")
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Alice"})

	rec, parsed := postJSON(t, mux, "/classroom/api/word/practice", map[string]interface{}{
		"code": code, "studentName": "Alice", "word": "cat", "correct": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("practice failed: %d %s", rec.Code, rec.Body.String())
	}
	stats := parsed["stats"].(map[string]interface{})
	if stats["correct"] != float64(1) || stats["wrong"] != float64(0) {
		t.Errorf("stats = %v", stats)
	}

	// correct=false counts the other way
	rec, parsed = postJSON(t, mux, "/classroom/api/word/practice", map[string]interface{}{
		"code": code, "studentName": "Alice", "word": "cat", "correct": false,
	})
	stats = parsed["stats"].(map[string]interface{})
	if stats["wrong"] != float64(1) {
		t.Errorf("stats after wrong answer = %v", stats)
	}

	// Unassigned word is rejected
	rec, _ = postJSON(t, mux, "/classroom/api/word/practice", map[string]interface{}{
		"code": code, "studentName": "Alice", "word": "zebra", "correct": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unassigned word: status = %d, want 400", rec.Code)
	}

	// Missing correct flag is a missing parameter
	rec, _ = postJSON(t, mux, "/classroom/api/word/practice", map[string]interface{}{
		"code": code, "studentName": "Alice", "word": "cat",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing correct: status = %d, want 400", rec.Code)
	}
}

func TestRemoveRequestFlow(t *testing.T) {
	h, _ := newTestHandler()
	mux := newTestMux(h)
	code := createClassroom(t, mux, "Unit 1", "cat dog")
	postJSON(t, mux, "/classroom/join", map[string]interface{}{"code": code, "studentName": "Alice"})

	rec, parsed := postJSON(t, mux, "/classroom/api/word/remove/request", map[string]interface{}{
		"code": code, "targetStudent": "Alice", "word": "cat", "requestedBy": "Bob",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("request failed: %d %s", rec.Code, rec.Body.String())
	}
	requestID := parsed["requestId"].(string)

	for _, voter := range []string{"Bob", "Carol", "Dave"} {
		rec, parsed = postJSON(t, mux, "/classroom/api/word/remove/vote", map[string]interface{}{
			"code": code, "requestId": requestID, "voterName": voter,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("vote by %s failed: %d", voter, rec.Code)
		}
	}

	request := parsed["request"].(map[string]interface{})
	if request["status"] != "approved" {
		t.Errorf("status after 3 votes = %v, want approved", request["status"])
	}

	rec, parsed = getJSON(t, mux, "/classroom/api/word/remove/"+code+"/"+requestID)
	if rec.Code != http.StatusOK {
		t.Fatalf("get request failed: %d", rec.Code)
	}

	rec, parsed = getJSON(t, mux, "/classroom/api/word/remove/list/"+code)
	if rec.Code != http.StatusOK {
		t.Fatalf("list requests failed: %d", rec.Code)
	}
	requests := parsed["requests"].([]interface{})
	if len(requests) != 1 {
		t.Errorf("request list size = %d, want 1", len(requests))
	}

	rec, _ = getJSON(t, mux, "/classroom/api/word/remove/"+code+"/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown request: status = %d, want 404", rec.Code)
	}
}
