package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
)

// CORS answers preflight requests and rejects origins outside the allow
// list. A "*" entry allows any origin; an empty list disables CORS headers.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowedOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(corsConfig(cfg))
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	out := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:        cfg.MaxAge,
	}
	if slices.Contains(cfg.AllowedOrigins, "*") {
		out.AllowAllOrigins = true
	} else {
		out.AllowOrigins = cfg.AllowedOrigins
	}
	return out
}
