package handlers

import (
	"net/http"
	"strconv"

	"cbtportal/services"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	drafts  *services.DraftService
	baseURL string
}

func NewDraftHandler(drafts *services.DraftService, baseURL string) *DraftHandler {
	return &DraftHandler{drafts: drafts, baseURL: baseURL}
}

type createDraftRequest struct {
	CreatedBy string `json:"createdBy"`
}

type updateDraftRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req createDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusCreated, h.drafts.Create(req.CreatedBy))
}

func (h *DraftHandler) GetDraft(c *gin.Context) {
	draft, err := h.drafts.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	var req updateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.drafts.UpdateDetails(c.Param("id"), req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) AddQuestion(c *gin.Context) {
	draft, err := h.drafts.AddQuestion(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

func (h *DraftHandler) UpdateQuestion(c *gin.Context) {
	var patch services.QuestionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.drafts.UpdateQuestion(c.Param("id"), c.Param("qid"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) MarkCorrect(c *gin.Context) {
	option, err := strconv.Atoi(c.Param("option"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid option index"})
		return
	}

	draft, err := h.drafts.MarkCorrect(c.Param("id"), c.Param("qid"), option)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) RemoveQuestion(c *gin.Context) {
	draft, err := h.drafts.RemoveQuestion(c.Param("id"), c.Param("qid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) PublishDraft(c *gin.Context) {
	quiz, err := h.drafts.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, PublishQuizResponse{Quiz: quiz, Link: h.baseURL + services.ShareLink(quiz.ID)})
}
