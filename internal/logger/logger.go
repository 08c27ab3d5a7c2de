package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	std  = logrus.New()
	once sync.Once
)

// Options cấu hình logger toàn cục.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // text hoặc json
	File   string // rỗng: chỉ ghi ra stdout
}

// Init khởi tạo logger một lần. Các lần gọi sau bị bỏ qua.
func Init(opts Options) {
	once.Do(func() {
		configure(std, opts)
	})
}

func configure(l *logrus.Logger, opts Options) {
	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 7,
			MaxAge:     7, // ngày
			Compress:   true,
		})
	}
	l.SetOutput(out)
}

// WithComponent gắn tên thành phần vào mọi dòng log.
func WithComponent(name string) *logrus.Entry {
	return std.WithField("component", name)
}

// GinLogger thay cho gin.Logger(), ghi request log qua logrus.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		entry := std.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request")
		case c.Writer.Status() >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
