package routes

import (
	"net/http"

	"cbtportal/handlers"
	"cbtportal/monitoring"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Quiz    *handlers.QuizHandler
	Draft   *handlers.DraftHandler
	Session *handlers.SessionHandler
	Admin   *handlers.AdminHandler
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.POST("", h.Quiz.PublishQuiz)
			quizzes.GET("/:id", h.Quiz.GetQuiz)
			quizzes.POST("/:id/sessions", h.Session.StartSession)
		}

		drafts := api.Group("/drafts")
		{
			drafts.POST("", h.Draft.CreateDraft)
			drafts.GET("/:id", h.Draft.GetDraft)
			drafts.PUT("/:id", h.Draft.UpdateDraft)
			drafts.POST("/:id/questions", h.Draft.AddQuestion)
			drafts.PATCH("/:id/questions/:qid", h.Draft.UpdateQuestion)
			drafts.PUT("/:id/questions/:qid/correct/:option", h.Draft.MarkCorrect)
			drafts.DELETE("/:id/questions/:qid", h.Draft.RemoveQuestion)
			drafts.POST("/:id/publish", h.Draft.PublishDraft)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("/:sid", h.Session.GetSession)
			sessions.POST("/:sid/answers", h.Session.SubmitAnswer)
			sessions.DELETE("/:sid", h.Session.DeleteSession)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/create-user", h.Admin.CreateUser)
			admin.POST("/signup", h.Admin.Signup)
			admin.POST("/users/:id/approve", h.Admin.ApproveUser)
			admin.GET("/dashboard", h.Admin.Dashboard)
		}
	}

	// Learners open the share link's WebSocket twin to take a quiz.
	router.GET("/ws/quiz/take/:id", h.Session.TakeQuiz)

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
