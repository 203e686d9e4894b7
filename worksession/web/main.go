package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"ropeaccess.com/crewtrack/config"
	"ropeaccess.com/crewtrack/core"
	"ropeaccess.com/crewtrack/infrastructure/devops"
	"ropeaccess.com/crewtrack/web/middlewares"
	"ropeaccess.com/crewtrack/worksession/web/common"
	"ropeaccess.com/crewtrack/worksession/web/handlers"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.SigningSecret) == 0 {
		log.Fatal("SIGNING_SECRET is required")
	}

	dm, err := core.New(cfg.DSN, cfg.MaxConnections)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()
	dm.LogLevel = core.ParseLogLevel(cfg.DBLogLevel)

	ctx := context.Background()
	var params devops.ParameterGetter
	if cfg.ReasonCatalogParam != "" {
		if params, err = devops.NewParameterGetter(ctx); err != nil {
			log.Fatal(err)
		}
	}
	catalog, err := devops.LoadReasonCatalog(ctx, cfg.ReasonCatalogFile, cfg.ReasonCatalogParam, params)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[INFO] loaded %d shortfall reasons\n", len(catalog.Reasons()))

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("[HTTP] %s %s %s %d %s %s\n",
			p.TimeStamp.Format(time.RFC3339),
			p.ClientIP,
			p.Method,
			p.StatusCode,
			p.Latency,
			p.Path,
		)
	}), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group("/api/v1")
	protected.Use(middlewares.Authentication(cfg.SigningSecret))
	handlers.Register(protected, &common.DatabaseProvider{Dm: dm}, catalog)

	log.Printf("[INFO] listening on :%s\n", cfg.Port)
	if err := r.Run("0.0.0.0:" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
