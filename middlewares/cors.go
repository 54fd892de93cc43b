package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// EdgeFunctionPrefix is where the edge-function compatible endpoints live.
const EdgeFunctionPrefix = "/functions/"

// EdgeCORSHeaders are the headers the mobile client's backend SDK sends.
const EdgeCORSHeaders = "authorization, x-client-info, apikey, content-type"

func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true // dev เท่านั้น; prod ใส่โดเมนจริง
	} else {
		cfg.AllowOrigins = origins
	}
	h := cors.New(cfg)
	return func(c *gin.Context) {
		// edge functions answer their own preflight
		if strings.HasPrefix(c.Request.URL.Path, EdgeFunctionPrefix) {
			c.Next()
			return
		}
		h(c)
	}
}

// EdgeCORS sets the permissive headers edge functions reply with and answers OPTIONS with "ok".
func EdgeCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", EdgeCORSHeaders)
		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}
		c.Next()
	}
}
