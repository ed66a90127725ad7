package secure

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// Options picks the headers the API sets on every response.
type Options struct {
	// SSLRedirect sends plain-HTTP requests to https on SSLHost.
	SSLRedirect bool
	SSLHost     string
	IsDev       bool
}

// Handler applies security headers and the optional https redirect.
func Handler(opts Options) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          opts.SSLRedirect,
		SSLHost:              opts.SSLHost,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		IsDevelopment:        opts.IsDev,
	})
	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// Process 已经写入了响应（重定向），这里只中止处理链
			c.Abort()
			return
		}
		c.Next()
	}
}
