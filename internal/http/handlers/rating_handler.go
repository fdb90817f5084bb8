// Rating HTTP handlers.
//
//   - POST /movies/{id}/rate      (rate, Idempotency-Key aware)
//   - GET  /movies/{id}/ratings/  (list)
package handlers

import (
	"github.com/gin-gonic/gin"
)

// RatingCreateRequest is the JSON payload for rating a movie. Stars is a
// pointer so that an explicit 0 is distinguishable from a missing field.
type RatingCreateRequest struct {
	Stars   *int    `json:"stars" binding:"required,min=0,max=5" example:"4"`
	Comment *string `json:"comment" binding:"omitnil,max=5000" example:"Holds up remarkably well."`
}

// RateMovie godoc
// @ID          rateMovie
// @Summary     Rate a movie
// @Description Records a 0–5 star rating. Repeating a request with the same Idempotency-Key returns the original rating.
// @Tags        Ratings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    int                           true   "Movie ID"
// @Param       Idempotency-Key  header  string                        false  "Idempotency key for safe retries"
// @Param       body             body    handlers.RatingCreateRequest  true   "Rating"
// @Success     200  {object}  domain.Rating
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Movie not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Stars out of range"
// @Router      /movies/{id}/rate [post]
func (h *Handlers) RateMovie(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	movieID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req RatingCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, replay, err := h.ratings.RateOnce(c.Request.Context(), idempotencyKey(c), uid, movieID, *req.Stars, req.Comment)
	if err != nil {
		serviceError(c, err)
		return
	}
	replayed(c, replay)
	ok(c, r)
}

// ListRatings godoc
// @ID          listRatings
// @Summary     List ratings of a movie
// @Tags        Ratings
// @Produce     json
// @Param       id   path     int  true  "Movie ID"
// @Success     200  {array}  domain.Rating
// @Failure     404  {object} handlers.ErrorResponse  "Movie not found"
// @Router      /movies/{id}/ratings/ [get]
func (h *Handlers) ListRatings(c *gin.Context) {
	movieID, valid := pathID(c, "id")
	if !valid {
		return
	}
	items, err := h.ratings.List(c.Request.Context(), movieID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, items)
}
