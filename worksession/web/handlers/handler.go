package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"ropeaccess.com/crewtrack/security"
	web "ropeaccess.com/crewtrack/web/common"
	"ropeaccess.com/crewtrack/web/middlewares"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/web/common"
)

type Endpoint struct {
	base common.Handler
}

// Register mounts the work session routes on r, which must already run
// middlewares.Authentication.
func Register(r *gin.RouterGroup, provider common.StoreProvider, catalog *core.ReasonCatalog) {
	endpoint := &Endpoint{base: common.Handler{Provider: provider, Catalog: catalog}}

	r.POST("/projects/:projectId/sessions", endpoint.StartSession)
	r.POST("/sessions/:sessionId/end", endpoint.EndSession)
	r.GET("/projects/:projectId/sessions", endpoint.ListSessions)
	r.GET("/projects/:projectId/sessions/mine", endpoint.MySession)

	r.GET("/projects/:projectId/progress", endpoint.GetProgress)
	r.PUT("/projects/:projectId/progress", endpoint.UpdateProgress)
	r.PUT("/projects/:projectId/adjustments", middlewares.RequireRole(security.RoleAdmin), endpoint.SetAdjustments)
	r.GET("/projects/:projectId/events", endpoint.ListEvents)

	r.GET("/projects/:projectId/shortfalls", endpoint.Shortfalls)
	r.GET("/shortfall-reasons", endpoint.ShortfallReasons)
}

func (ep *Endpoint) StartSession(c *gin.Context) {
	var dto StartSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}
	if dto.WorkDate.IsZero() {
		c.JSON(http.StatusBadRequest, web.NewFieldErrorResponse("workDate", "Field 'workDate' is required"))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	result, err := manager.Start(c.Request.Context(), core.StartInput{
		ProjectID: c.Param("projectId"),
		WorkerID:  middlewares.WorkerID(c),
		WorkDate:  dto.WorkDate.Format("2006-01-02"),
		Location:  dto.Location.toLocation(),
	})
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, web.NewSuccessResponse(result))
}

func (ep *Endpoint) EndSession(c *gin.Context) {
	var dto EndSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	result, err := manager.End(c.Request.Context(), c.Param("sessionId"), dto.toInput(middlewares.WorkerID(c)))
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(result))
}

func (ep *Endpoint) ListSessions(c *gin.Context) {
	var query SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	filter := core.SessionFilter{WorkDate: query.WorkDate}
	if query.Active != nil {
		filter.ActiveOnly = *query.Active
		filter.EndedOnly = !*query.Active
	}

	sessions, err := manager.Sessions(c.Request.Context(), c.Param("projectId"), filter)
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(sessions, int64(len(sessions))))
}

// MySession lets a worker resume the session they left open.
func (ep *Endpoint) MySession(c *gin.Context) {
	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	session, err := manager.ActiveSession(c.Request.Context(), c.Param("projectId"), middlewares.WorkerID(c))
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(session))
}

func (ep *Endpoint) GetProgress(c *gin.Context) {
	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	progress, err := manager.Progress(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(progress))
}

func (ep *Endpoint) UpdateProgress(c *gin.Context) {
	var dto ProgressUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	project, err := manager.UpdateOverallProgress(c.Request.Context(), c.Param("projectId"), middlewares.WorkerID(c), core.ProgressUpdate{
		CompletionPercentage: dto.CompletionPercentage,
		Skip:                 dto.Skip,
		SessionID:            dto.SessionID,
	})
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(project))
}

func (ep *Endpoint) SetAdjustments(c *gin.Context) {
	var dto AdjustmentsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	result, err := manager.SetAdjustments(c.Request.Context(), c.Param("projectId"), middlewares.WorkerID(c), dto.toTargets())
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(result))
}

func (ep *Endpoint) ListEvents(c *gin.Context) {
	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	events, err := manager.Events(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(events, int64(len(events))))
}

func (ep *Endpoint) Shortfalls(c *gin.Context) {
	var query ShortfallQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	manager, release, err := ep.base.Manager(c)
	if err != nil {
		web.WriteError(c, err)
		return
	}
	defer release()

	report, err := manager.Shortfalls(c.Request.Context(), c.Param("projectId"), core.SessionFilter{FromDate: query.From, ToDate: query.To})
	if err != nil {
		web.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(report))
}

func (ep *Endpoint) ShortfallReasons(c *gin.Context) {
	c.JSON(http.StatusOK, web.NewSuccessResponse(ep.base.Catalog.Reasons()))
}
