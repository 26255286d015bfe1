package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
)

const idempotencyKeyHeader = "Idempotency-Key"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshop_http_requests_total",
		Help: "Total number of HTTP requests grouped by method, route and status.",
	}, []string{"method", "route", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookshop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// requestMetrics считает запросы и их длительность по шаблону маршрута,
// а не по сырому пути, чтобы не раздувать кардинальность метрик.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}

// bodyCapture дублирует записанный ответ, чтобы его можно было сохранить
// для повторной выдачи по idempotency-key.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotency реализует at-most-once семантику для запросов с заголовком
// Idempotency-Key: первый запрос выполняется, повтор с тем же телом
// получает сохранённый ответ, повтор с другим телом отклоняется.
func idempotency(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
		if repo == nil || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, domain.ErrInvalidArgument)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		requestHash := hex.EncodeToString(sum[:])

		_, err = repo.CreateProcessing(key, requestHash, time.Time{})
		switch {
		case err == nil:
			// Первый запрос с этим ключом: выполняем и запоминаем ответ.
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			writeError(c, err)
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			record, getErr := repo.Get(key)
			if getErr != nil {
				writeError(c, getErr)
				return
			}
			if record.Status == domain.IdempotencyStatusProcessing {
				c.AbortWithStatusJSON(http.StatusConflict, errorBody{Error: errorDetail{
					Kind:    "RequestInProgress",
					Message: "request with this idempotency key is still being processed",
				}})
				return
			}
			c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
			c.Abort()
			return
		default:
			writeError(c, err)
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := c.Writer.Status()
		responseBody := capture.buf.Bytes()
		if status >= 200 && status < 300 {
			err = repo.MarkDone(key, responseBody, status)
		} else {
			err = repo.MarkFailed(key, responseBody, status)
		}
		if err != nil {
			logger.WithError(err).WithField("idempotency_key", key).
				Warn("failed to store idempotency result")
		}
	}
}
