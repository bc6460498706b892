package handlers

import (
	"errors"
	"net/http"

	"cbtportal/models"
	"cbtportal/services"
	"cbtportal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QuizHandler struct {
	quizService *services.QuizService
	baseURL     string
	log         *zap.Logger
}

func NewQuizHandler(quizService *services.QuizService, baseURL string, log *zap.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		baseURL:     baseURL,
		log:         log,
	}
}

type PublishQuizRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []models.Question `json:"questions"`
	CreatedBy   string            `json:"createdBy"`
}

type PublishQuizResponse struct {
	Quiz *models.Quiz `json:"quiz"`
	Link string       `json:"link"`
}

func (h *QuizHandler) link(quizID string) string {
	return h.baseURL + services.ShareLink(quizID)
}

func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	var req PublishQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.Publish(c.Request.Context(), &services.Draft{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PublishQuizResponse{Quiz: quiz, Link: h.link(quiz.ID)})
}

// GetQuiz serves the learner view of a quiz. Any failure reads as not found;
// the cause is only logged.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := c.Param("id")

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("quiz lookup failed", zap.String("quiz_id", id), zap.Error(err))
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
		return
	}

	c.JSON(http.StatusOK, quiz)
}
