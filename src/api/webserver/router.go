package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/simd-tracker/src/config"
)

func attachRoutes(r *gin.Engine, cfg config.HTTP, deps Deps) {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	feeds := NewFeeds(deps.Store, deps.BotAuthors, deps.Log)
	trig := NewTriggers(deps)

	r.GET("/healthz", feeds.Health)

	v1 := r.Group("/v1")
	{
		v1.GET("/simds", feeds.ListSIMDs)
		v1.GET("/simds/:id", feeds.SIMD)
		v1.GET("/feeds/merged", feeds.Merged)
		v1.GET("/feeds/open-prs", feeds.OpenPRs)
		v1.GET("/feeds/discussions", feeds.Discussions)
	}

	cron := v1.Group("/cron")
	cron.Use(CronMiddleware(cfg.CronSecret))
	trig.attach(cron)

	limit := cfg.AdminRateLimit
	if limit <= 0 {
		limit = 30
	}
	admin := v1.Group("/admin")
	admin.Use(JWTMiddleware([]byte(cfg.JWTSecret)), RateLimitMiddleware(NewRateLimiter(limit, time.Minute)))
	{
		trig.attach(admin)
		admin.GET("/jobs", trig.Jobs)
		admin.GET("/digest", trig.Digest)
	}
}
