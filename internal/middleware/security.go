package middleware

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	MaxRequestSize    int64
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequireHTTPS      bool
}

// DefaultSecurityConfig returns default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		MaxRequestSize:    60 << 20,
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
		RequireHTTPS:      false,
	}
}

// ipLimiters hands out one token bucket per client IP
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newIPLimiters(requests int, window time.Duration) *ipLimiters {
	return &ipLimiters{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	limiter, exists := l.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

var suspiciousPatterns = []string{
	"../", "..\\", "<script", "javascript:", "vbscript:",
	"onload=", "onerror=", "eval(", "expression(",
}

// SecurityMiddleware enforces request size, per-IP rate limits, content
// types and URL hygiene, and sets security headers
func SecurityMiddleware(config *SecurityConfig, logger logrus.FieldLogger) gin.HandlerFunc {
	if config == nil {
		config = DefaultSecurityConfig()
	}
	limiters := newIPLimiters(config.RateLimitRequests, config.RateLimitWindow)

	return func(c *gin.Context) {
		if c.Request.ContentLength > config.MaxRequestSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": "Request body too large",
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxRequestSize)
		}

		clientIP := c.ClientIP()
		if !limiters.allow(clientIP) {
			logger.WithFields(logrus.Fields{
				"ip":     clientIP,
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Rate limit exceeded",
			})
			return
		}

		if (c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch) &&
			c.Request.ContentLength != 0 {
			contentType := c.GetHeader("Content-Type")
			if !allowedContentType(contentType) {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"message": "Unsupported content type: " + contentType,
				})
				return
			}
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")

		if config.RequireHTTPS && c.Request.Header.Get("X-Forwarded-Proto") != "https" {
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, gin.H{
				"success": false,
				"message": "HTTPS required",
			})
			return
		}
		if config.RequireHTTPS {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		requestURI := strings.ToLower(c.Request.RequestURI)
		for _, pattern := range suspiciousPatterns {
			if strings.Contains(requestURI, pattern) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Suspicious request pattern detected",
				})
				return
			}
		}

		c.Next()
	}
}

func allowedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, valid := range []string{"application/json", "multipart/form-data", "application/x-www-form-urlencoded"} {
		if strings.Contains(contentType, valid) {
			return true
		}
	}
	return false
}

var dangerousExtensions = []string{".exe", ".bat", ".cmd", ".scr", ".pif", ".js", ".vbs", ".php", ".asp", ".sh"}

// FileUploadSecurityMiddleware rejects executable attachments before any
// handler looks at them. Type and size rules per upload kind are enforced
// by the asset service.
func FileUploadSecurityMiddleware(maxMemory int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.Next()
			return
		}

		if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Failed to parse multipart form",
			})
			return
		}

		if form := c.Request.MultipartForm; form != nil {
			for _, files := range form.File {
				for _, file := range files {
					ext := strings.ToLower(filepath.Ext(file.Filename))
					for _, bad := range dangerousExtensions {
						if ext == bad {
							c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
								"success": false,
								"message": "Dangerous file type: " + file.Filename,
							})
							return
						}
					}
				}
			}
		}

		c.Next()
	}
}

// AuthRateLimitMiddleware applies a stricter per-IP limit to login and registration
func AuthRateLimitMiddleware(requests int, window time.Duration, logger logrus.FieldLogger) gin.HandlerFunc {
	limiters := newIPLimiters(requests, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !limiters.allow(clientIP) {
			logger.WithFields(logrus.Fields{"ip": clientIP, "path": c.Request.URL.Path}).Warn("auth rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many authentication attempts. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// CORSMiddleware answers preflights and sets CORS headers for allowed origins.
// With allowAll set every origin is echoed back.
func CORSMiddleware(allowedOrigins []string, allowAll bool) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if userID := c.GetString(ContextUserID); userID != "" {
			entry = entry.WithField("user_id", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
