// Package api exposes quizzes, grading and the leaderboard as JSON over HTTP
// and forwards leaderboard changes to Redis subscribers.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/errors"
	"github.com/victornm/quizluv/internal/event"
	"github.com/victornm/quizluv/internal/leaderboard"
	"github.com/victornm/quizluv/internal/quiz"
	"github.com/victornm/quizluv/internal/score"
)

type Config struct {
	Engine      *gin.Engine
	EventBus    *event.Bus
	Quiz        *quiz.Service
	Score       *score.Service
	Leaderboard *leaderboard.Service
	// Redis receives leaderboard notifications. Nil disables them.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	qs *quiz.Service
	ss *score.Service
	ls *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	useJSONFieldNames()

	a := &API{
		qs:     c.Quiz,
		ss:     c.Score,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	g := c.Engine.Group("/api/quizzes")
	g.GET("/leaderboard", a.ListLeaderboard)
	g.POST("/leaderboard", a.RecordLeaderboard)
	g.GET("/:id/questions", a.GetQuestions)
	g.POST("/:id/submit", a.Submit)

	c.Engine.NoRoute(func(c *gin.Context) {
		fail(c, errors.NotFound("Not found"))
	})

	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameLeaderboardRecorded, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardRecorded(ctx, e.(domain.EventLeaderboardRecorded))
		})
	}

	return a
}

func (a *API) GetQuestions(c *gin.Context) {
	id, err := quiz.ParseQuizID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	q, err := a.qs.GetQuiz(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, toQuiz(q))
}

func (a *API) Submit(c *gin.Context) {
	id, err := quiz.ParseQuizID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	res, err := a.ss.Submit(c.Request.Context(), score.SubmitRequest{
		QuizID:           id,
		Answers:          req.Answers,
		TimeTakenSeconds: int(*req.TimeTakenSeconds),
	})
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, toSubmitResult(res))
}

func (a *API) ListLeaderboard(c *gin.Context) {
	entries, err := a.ls.List(c.Request.Context(), leaderboard.ListRequest{})
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, toLeaderboard(entries))
}

func (a *API) RecordLeaderboard(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	if _, err := a.ls.Record(c.Request.Context(), leaderboard.RecordRequest{
		Name:     req.Name,
		Category: req.Category,
		Score:    int(*req.Score),
		Time:     int(*req.Time),
	}); err != nil {
		fail(c, err)
		return
	}

	ok(c, nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    any             `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details []errors.Detail `json:"details,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// fail writes err as an error envelope. Internal failures are logged and
// replaced with a generic message.
func fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	_ = c.Error(err)

	msg := e.Message
	if errors.Is(e, errors.CodeInternal) {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "error", err)
		msg = "Internal server error"
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), envelope{
		Error:   msg,
		Details: e.Details,
	})
}

// bindError turns a request decoding or validation failure into an invalid
// argument error describing every rejected field.
func bindError(err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		details []errors.Detail
	)

	switch {
	case stderrors.As(err, &verrs):
		for _, fe := range verrs {
			details = append(details, errors.Detail{
				Field: fieldPath(fe),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
	case stderrors.As(err, &typeErr):
		details = append(details, errors.Detail{
			Field: typeErr.Field,
			Rule:  "type",
			Param: typeErr.Type.String(),
		})
	default:
		details = append(details, errors.Detail{Rule: "json"})
	}

	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("Validation error"),
		errors.WithDetails(details...),
		errors.WithCause(err),
	)
}

// fieldPath strips the request struct name from the validator namespace, so
// "SubmitRequest.answers[x]" becomes "answers[x]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var jsonNamesOnce sync.Once

func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
