// Comment HTTP handlers.
//
//   - POST /movies/{id}/comments  (comment, optional parent)
//   - GET  /movies/{id}/comments  (list, one level of children)
//   - GET  /comments/{id}         (read with children)
//   - POST /comments/{id}/reply   (reply under the parent's movie)
package handlers

import (
	"github.com/gin-gonic/gin"
)

// CommentCreateRequest is the JSON payload for commenting on a movie.
type CommentCreateRequest struct {
	Text            string `json:"text" binding:"required,min=1,max=5000" example:"The rain scene gets me every time."`
	ParentCommentID *uint  `json:"parent_comment_id" example:"7"`
}

// ReplyRequest is the JSON payload for replying to a comment.
type ReplyRequest struct {
	Text string `json:"text" binding:"required,min=1,max=5000" example:"Tears in rain."`
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a movie
// @Description Adds a comment, optionally answering parent_comment_id on the same movie.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    int                            true   "Movie ID"
// @Param       Idempotency-Key  header  string                         false  "Idempotency key for safe retries"
// @Param       body             body    handlers.CommentCreateRequest  true   "Comment"
// @Success     200  {object}  domain.Comment
// @Failure     400  {object}  handlers.ErrorResponse  "Parent belongs to another movie"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Movie or parent not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation error"
// @Router      /movies/{id}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	movieID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req CommentCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	cm, replay, err := h.comments.CreateOnce(c.Request.Context(), idempotencyKey(c), uid, movieID, req.Text, req.ParentCommentID)
	if err != nil {
		serviceError(c, err)
		return
	}
	replayed(c, replay)
	ok(c, cm)
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments of a movie
// @Description Returns every comment of the movie ordered by id, each with its direct replies.
// @Tags        Comments
// @Produce     json
// @Param       id   path     int  true  "Movie ID"
// @Success     200  {array}  domain.Comment
// @Failure     404  {object} handlers.ErrorResponse  "Movie not found"
// @Router      /movies/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	movieID, valid := pathID(c, "id")
	if !valid {
		return
	}
	items, err := h.comments.List(c.Request.Context(), movieID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, items)
}

// GetComment godoc
// @ID          getComment
// @Summary     Get a comment
// @Tags        Comments
// @Produce     json
// @Param       id   path      int  true  "Comment ID"
// @Success     200  {object}  domain.Comment
// @Failure     404  {object}  handlers.ErrorResponse  "Comment not found"
// @Router      /comments/{id} [get]
func (h *Handlers) GetComment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	cm, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, cm)
}

// ReplyComment godoc
// @ID          replyComment
// @Summary     Reply to a comment
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    int                    true   "Parent comment ID"
// @Param       Idempotency-Key  header  string                 false  "Idempotency key for safe retries"
// @Param       body             body    handlers.ReplyRequest  true   "Reply"
// @Success     200  {object}  domain.Comment
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Parent comment not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation error"
// @Router      /comments/{id}/reply [post]
func (h *Handlers) ReplyComment(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	parentID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req ReplyRequest
	if !bindJSON(c, &req) {
		return
	}
	cm, replay, err := h.comments.ReplyOnce(c.Request.Context(), idempotencyKey(c), uid, parentID, req.Text)
	if err != nil {
		serviceError(c, err)
		return
	}
	replayed(c, replay)
	ok(c, cm)
}
