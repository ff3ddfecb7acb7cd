package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"quizly/internal/domain"
)

// Handler exposes the quiz API over HTTP.
type Handler struct {
	service *QuizService
	log     *logrus.Logger
}

func NewHandler(service *QuizService, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{service: service, log: log}
}

// Routes builds the API router. The browser front-end is served separately,
// so cross-origin requests are allowed.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Quizly API"})
	})

	r.Get("/api/questions", h.listQuestions)
	r.Get("/api/questions/ai", h.generateQuestions)
	r.Post("/api/quiz/submit", h.submitQuiz)
	r.Get("/api/quiz/{quizID}", h.getResult)
	r.Get("/api/categories", h.categories)
	r.Get("/api/llm/health", h.generatorHealth)
	return r
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := queryInt(r, "limit", 10)

	questions, err := h.service.Questions(r.Context(), category, limit)
	if err != nil {
		h.log.WithError(err).Error("list questions failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) generateQuestions(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		h.writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	limit := queryInt(r, "limit", 5)
	model := r.URL.Query().Get("model")

	questions, err := h.service.Generate(r.Context(), subject, limit, model)
	if err != nil {
		h.log.WithError(err).WithField("subject", subject).Error("question generation failed")
		h.writeError(w, http.StatusBadGateway, "question generation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var submission domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid submission body")
		return
	}

	result, err := h.service.Submit(r.Context(), submission)
	if err != nil {
		h.log.WithError(err).Error("quiz submission failed")
		h.writeError(w, http.StatusInternalServerError, "failed to submit quiz")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	result, err := h.service.Result(r.Context(), quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			h.writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		h.log.WithError(err).Error("result lookup failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load quiz result")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.log.WithError(err).Error("category listing failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *Handler) generatorHealth(w http.ResponseWriter, r *http.Request) {
	name, healthy := h.service.GeneratorHealth(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"provider": name,
		"healthy":  healthy,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("response encoding failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"detail": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
