// Movie HTTP handlers.
//
//   - POST   /movies        (create)
//   - GET    /movies/       (list, skip/limit, weak ETag)
//   - GET    /movie/{id}    (read)
//   - PUT    /movies/{id}   (owner-only partial update)
//   - DELETE /movies/{id}   (owner-only delete)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/services"
	"github.com/tbourn/go-movie-reviews/internal/utils"
)

// MovieCreateRequest is the JSON payload for adding a movie.
type MovieCreateRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=255" example:"Blade Runner"`
	Description string `json:"description" binding:"required" example:"Replicants on the run in 2019 Los Angeles."`
}

// MovieUpdateRequest is a partial update; omitted fields keep their value.
type MovieUpdateRequest struct {
	Title       *string `json:"title" binding:"omitnil,min=1,max=255" example:"Blade Runner (Final Cut)"`
	Description *string `json:"description" example:"Restored 2007 edition."`
}

// CreateMovie godoc
// @ID          createMovie
// @Summary     Add a movie
// @Tags        Movies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.MovieCreateRequest  true  "Movie"
// @Success     200   {object}  domain.Movie
// @Failure     401   {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     422   {object}  handlers.ErrorResponse  "Validation error"
// @Router      /movies [post]
func (h *Handlers) CreateMovie(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	var req MovieCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.movies.Create(c.Request.Context(), uid, req.Title, req.Description)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, m)
}

// ListMovies godoc
// @ID          listMovies
// @Summary     List movies
// @Description Returns movies ordered by id. Supports a weak ETag via If-None-Match.
// @Tags        Movies
// @Produce     json
// @Param       skip           query   int     false  "Rows to skip"   minimum(0) default(0)
// @Param       limit          query   int     false  "Page size"      minimum(1) maximum(100) default(10)
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Success     200  {array}   domain.Movie
// @Header      200  {string}  ETag  "Weak ETag for the current page"
// @Success     304  {string}  string  "Not Modified"
// @Router      /movies/ [get]
func (h *Handlers) ListMovies(c *gin.Context) {
	ctx := c.Request.Context()
	skip, limit := utils.ClampWindow(
		utils.AtoiDefault(c.Query("skip"), 0),
		utils.AtoiDefault(c.Query("limit"), services.DefaultMovieLimit),
		services.DefaultMovieLimit, services.MaxMovieLimit,
	)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.movies.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"movies:%d:%d:%d:%d"`, count, ts, skip, limit)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.movies.List(ctx, skip, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, items)
}

// GetMovie godoc
// @ID          getMovie
// @Summary     Get a movie
// @Tags        Movies
// @Produce     json
// @Param       id   path      int  true  "Movie ID"
// @Success     200  {object}  domain.Movie
// @Failure     404  {object}  handlers.ErrorResponse  "Movie not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Invalid id"
// @Router      /movie/{id} [get]
func (h *Handlers) GetMovie(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	m, err := h.movies.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, m)
}

// UpdateMovie godoc
// @ID          updateMovie
// @Summary     Update a movie
// @Description Partially updates title and/or description. Owner only.
// @Tags        Movies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                          true  "Movie ID"
// @Param       body  body      handlers.MovieUpdateRequest  true  "Fields to change"
// @Success     200   {object}  domain.Movie
// @Failure     401   {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404   {object}  handlers.ErrorResponse  "Movie not found"
// @Failure     422   {object}  handlers.ErrorResponse  "Validation error"
// @Router      /movies/{id} [put]
func (h *Handlers) UpdateMovie(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req MovieUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.movies.Update(c.Request.Context(), uid, id, req.Title, req.Description)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, m)
}

// DeleteMovie godoc
// @ID          deleteMovie
// @Summary     Delete a movie
// @Description Deletes the movie with its ratings and comments. Owner only.
// @Tags        Movies
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Movie ID"
// @Success     200  {array}   string
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Movie not found"
// @Router      /movies/{id} [delete]
func (h *Handlers) DeleteMovie(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.movies.Delete(c.Request.Context(), uid, id); err != nil {
		serviceError(c, err)
		return
	}
	ok(c, []string{MsgMovieDeleted})
}
