package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/render"
	"github.com/thywilljoshua/site-diary/internal/review"
)

// statusFor maps stage errors to HTTP status codes.
func statusFor(err error) int {
	var (
		vErr    *diary.ValidationError
		kindErr *diary.KindError
		exErr   *extract.ExtractionError
		gwErr   *ai.GatewayError
		rErr    *render.RenderError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, review.ErrNotFound), errors.Is(err, diary.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, review.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &kindErr):
		return http.StatusBadRequest
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &vErr), errors.As(err, &exErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	case errors.As(err, &rErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := gin.H{"error": err.Error()}
	var vErr *diary.ValidationError
	if errors.As(err, &vErr) {
		body["problems"] = vErr.Problems
	}
	var gwErr *ai.GatewayError
	if errors.As(err, &gwErr) {
		body["kind"] = gwErr.Kind
	}
	c.JSON(statusFor(err), body)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
