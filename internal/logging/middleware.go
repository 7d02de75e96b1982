package logging

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// samplerMap hands out one sampler per key, so every endpoint is sampled
// independently of the others.
type samplerMap struct {
	newSampler func() zerolog.Sampler

	mu       sync.Mutex
	samplers map[string]zerolog.Sampler
}

func (s *samplerMap) get(fields ...string) zerolog.Sampler {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.Join(fields, "-")
	sampler, ok := s.samplers[key]
	if !ok {
		sampler = s.newSampler()
		s.samplers[key] = sampler
	}
	return sampler
}

// Middleware logs one line per request. Requests that fail always log;
// successful requests are sampled per method and path so that busy endpoints
// do not flood the log.
func Middleware() gin.HandlerFunc {
	samplers := &samplerMap{
		newSampler: func() zerolog.Sampler {
			return &zerolog.BurstSampler{
				Burst:  1,
				Period: 7 * time.Second,
			}
		},
		samplers: make(map[string]zerolog.Sampler),
	}

	return func(c *gin.Context) {
		begin := time.Now()

		c.Next()

		level := zerolog.InfoLevel
		if len(c.Errors) > 0 {
			level = zerolog.ErrorLevel
		}

		log := L.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remoteAddr", c.Request.RemoteAddr).
			Int64("contentLength", c.Request.ContentLength).
			Logger()

		if level < zerolog.WarnLevel {
			log = log.Sample(samplers.get(c.Request.Method, c.FullPath()))
		}

		errs := make([]error, 0, len(c.Errors))
		for _, err := range c.Errors {
			errs = append(errs, err.Err)
		}

		log.WithLevel(level).
			Errs("errors", errs).
			Dur("elapsed", time.Since(begin)).
			Int("statusCode", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Msg("")
	}
}
