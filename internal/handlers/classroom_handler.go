package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vocaroom/internal/models"
	"vocaroom/internal/service"
	"vocaroom/internal/store"
	"vocaroom/internal/utils"
	"vocaroom/internal/wordlist"
)

// ClassroomHandler serves the classroom JSON API. Classroom operations go
// through the manager; remove-vote operations go straight to the memory
// store, since voting only exists for anonymous classrooms.
type ClassroomHandler struct {
	manager       *service.Manager
	memory        *store.MemoryStore
	durable       *service.ClassroomService
	email         *service.EmailService
	uploadMaxSize int64
}

// NewClassroomHandler creates a new classroom handler
func NewClassroomHandler(manager *service.Manager, memory *store.MemoryStore, durable *service.ClassroomService, email *service.EmailService, uploadMaxSize int64) *ClassroomHandler {
	return &ClassroomHandler{
		manager:       manager,
		memory:        memory,
		durable:       durable,
		email:         email,
		uploadMaxSize: uploadMaxSize,
	}
}

// Create handles POST /classroom/create: a multipart upload with the
// classroom name and a vocabulary file
func (h *ClassroomHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize)
	if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
		respondError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	classroomName := r.FormValue("classroomName")
	if err := utils.ValidateClassroomName(classroomName); err != nil {
		respondError(w, http.StatusBadRequest, "Classroom name is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	words, err := wordlist.Extract(header.Filename, file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(words) == 0 {
		respondError(w, http.StatusBadRequest, "No words found in the file")
		return
	}

	user := GetUserFromContext(r.Context())
	room, err := h.manager.CreateClassroom(strings.TrimSpace(classroomName), words, user)
	if err != nil {
		respondInternalError(w, "failed to create classroom", err)
		return
	}

	if user != nil && room.Source == models.SourceDatabase && h.email.IsEnabled() {
		go h.notifyCreated(user.Email, user.Name, room)
	}

	respondOK(w, map[string]interface{}{
		"code":      room.Code,
		"name":      room.Name,
		"wordCount": room.WordCount,
		"mode":      room.Source,
	})
}

func (h *ClassroomHandler) notifyCreated(email, name string, room *models.Classroom) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.email.SendClassroomCreated(ctx, email, name, room.Name, room.Code); err != nil {
		log.Printf("failed to send classroom created email: %v", err)
	}
}

// Join handles POST /classroom/join
func (h *ClassroomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		StudentName string `json:"studentName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" || req.StudentName == "" {
		respondError(w, http.StatusBadRequest, "Code and name are required")
		return
	}
	if err := utils.ValidateStudentName(req.StudentName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := GetUserFromContext(r.Context())
	studentName := strings.TrimSpace(req.StudentName)

	if _, err := h.manager.JoinClassroom(strings.ToUpper(req.Code), studentName, user); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrClassroomNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, errorText(err, "Failed to join classroom"))
		return
	}

	respondOK(w, map[string]interface{}{
		"code":        strings.ToUpper(req.Code),
		"studentName": studentName,
	})
}

// GetClassroom handles GET /classroom/api/info/{code}
func (h *ClassroomHandler) GetClassroom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	room, err := h.manager.GetClassroom(strings.ToUpper(r.PathValue("code")), user)
	if err != nil {
		respondError(w, http.StatusNotFound, "Classroom not found")
		return
	}
	respondOK(w, map[string]interface{}{"classroom": room})
}

// StartSession handles POST /classroom/api/session/start
func (h *ClassroomHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		StudentName string `json:"studentName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.manager.StartSession(strings.ToUpper(req.Code), req.StudentName, user); err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to start session"))
		return
	}
	respondOK(w, nil)
}

// EndSession handles POST /classroom/api/session/end
func (h *ClassroomHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		StudentName string `json:"studentName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	duration, err := h.manager.EndSession(strings.ToUpper(req.Code), req.StudentName, user)
	if err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to end session"))
		return
	}
	respondOK(w, map[string]interface{}{"duration": duration})
}

// Leaderboard handles GET /classroom/api/leaderboard/{code}
func (h *ClassroomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	board, err := h.manager.Leaderboard(strings.ToUpper(r.PathValue("code")), user)
	if err != nil {
		respondError(w, http.StatusNotFound, "Classroom not found")
		return
	}
	respondOK(w, map[string]interface{}{"leaderboard": board})
}

// StudentStatus handles GET /classroom/api/status/{code}/{name}
func (h *ClassroomHandler) StudentStatus(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	status, err := h.manager.StudentStatus(strings.ToUpper(r.PathValue("code")), r.PathValue("name"), user)
	if err != nil {
		respondError(w, http.StatusNotFound, "Student or classroom not found")
		return
	}
	respondOK(w, map[string]interface{}{"status": status})
}

// SwapWords handles POST /classroom/api/word/swap
func (h *ClassroomHandler) SwapWords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		StudentA string `json:"studentA"`
		WordA    string `json:"wordA"`
		StudentB string `json:"studentB"`
		WordB    string `json:"wordB"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" || req.StudentA == "" || req.StudentB == "" || req.WordA == "" || req.WordB == "" {
		respondError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.manager.SwapWords(strings.ToUpper(req.Code), req.StudentA, req.WordA, req.StudentB, req.WordB, user); err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to swap words"))
		return
	}
	respondOK(w, nil)
}

// RecordPractice handles POST /classroom/api/word/practice
func (h *ClassroomHandler) RecordPractice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		StudentName string `json:"studentName"`
		Word        string `json:"word"`
		Correct     *bool  `json:"correct"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" || req.StudentName == "" || req.Word == "" || req.Correct == nil {
		respondError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	user := GetUserFromContext(r.Context())
	stat, err := h.manager.RecordPractice(strings.ToUpper(req.Code), req.StudentName, req.Word, *req.Correct, user)
	if err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to record practice"))
		return
	}
	respondOK(w, map[string]interface{}{"stats": stat})
}

// RequestRemoveWord handles POST /classroom/api/word/remove/request
func (h *ClassroomHandler) RequestRemoveWord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code          string `json:"code"`
		TargetStudent string `json:"targetStudent"`
		Word          string `json:"word"`
		RequestedBy   string `json:"requestedBy"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" || req.TargetStudent == "" || req.Word == "" || req.RequestedBy == "" {
		respondError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	request, err := h.memory.RequestRemoveWord(strings.ToUpper(req.Code), req.TargetStudent, req.Word, req.RequestedBy)
	if err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to create remove request"))
		return
	}
	respondOK(w, map[string]interface{}{"requestId": request.ID})
}

// VoteRemoveWord handles POST /classroom/api/word/remove/vote
func (h *ClassroomHandler) VoteRemoveWord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string `json:"code"`
		RequestID string `json:"requestId"`
		VoterName string `json:"voterName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" || req.RequestID == "" || req.VoterName == "" {
		respondError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	request, err := h.memory.VoteRemoveRequest(strings.ToUpper(req.Code), req.RequestID, req.VoterName)
	if err != nil {
		respondError(w, http.StatusBadRequest, errorText(err, "Failed to vote"))
		return
	}
	respondOK(w, map[string]interface{}{"request": request})
}

// GetRemoveRequest handles GET /classroom/api/word/remove/{code}/{requestId}
func (h *ClassroomHandler) GetRemoveRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.memory.GetRemoveRequest(strings.ToUpper(r.PathValue("code")), r.PathValue("requestId"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Request not found")
		return
	}
	respondOK(w, map[string]interface{}{"request": request})
}

// ListRemoveRequests handles GET /classroom/api/word/remove/list/{code}
func (h *ClassroomHandler) ListRemoveRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.memory.GetAllRemoveRequests(strings.ToUpper(r.PathValue("code")))
	if err != nil {
		respondError(w, http.StatusNotFound, "Classroom not found")
		return
	}
	respondOK(w, map[string]interface{}{"requests": requests})
}

// MyClassrooms handles GET /classroom/api/my-classrooms (auth required)
func (h *ClassroomHandler) MyClassrooms(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	classrooms, err := h.durable.MyClassrooms(user.UID)
	if err != nil {
		respondInternalError(w, "failed to list classrooms", err)
		return
	}
	if classrooms == nil {
		classrooms = []models.ClassroomSummary{}
	}
	respondOK(w, map[string]interface{}{"classrooms": classrooms})
}

// MyParticipations handles GET /classroom/api/my-participations (auth required)
func (h *ClassroomHandler) MyParticipations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	participations, err := h.durable.MyParticipations(user.UID)
	if err != nil {
		respondInternalError(w, "failed to list participations", err)
		return
	}
	if participations == nil {
		participations = []models.Participation{}
	}
	respondOK(w, map[string]interface{}{"participations": participations})
}

// Progress handles GET /classroom/api/progress/{classroomId} (auth required)
func (h *ClassroomHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	classroomID, err := strconv.ParseInt(r.PathValue("classroomId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid classroom ID format")
		return
	}

	progress, err := h.durable.StudentProgress(classroomID, user.UID)
	if err != nil {
		if errors.Is(err, models.ErrClassroomNotFound) || errors.Is(err, models.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, errorText(err, "Not found"))
			return
		}
		respondInternalError(w, "failed to build progress", err)
		return
	}

	respondOK(w, map[string]interface{}{
		"classroom": progress.Classroom,
		"student":   progress.Student,
		"wordStats": progress.WordStats,
		"sessions":  progress.Sessions,
	})
}

// decodeBody decodes a JSON request body, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// errorText returns the error's message when it is safe user-facing text,
// or the fallback for unexpected failures
func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	switch {
	case errors.Is(err, models.ErrClassroomNotFound),
		errors.Is(err, models.ErrStudentNotFound),
		errors.Is(err, models.ErrRequestNotFound),
		errors.Is(err, models.ErrNoActiveSession):
		return err.Error()
	}
	msg := err.Error()
	if strings.Contains(msg, "does not") || strings.Contains(msg, "not found") {
		return msg
	}
	log.Printf("%s: %v", fallback, err)
	return fallback
}
