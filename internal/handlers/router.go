package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/dashboard"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
)

type HandlerManager struct {
	authHandler        *AuthHandler
	dashboardHandler   *DashboardHandler
	jobHandler         *JobHandler
	applicationHandler *ApplicationHandler
	userHandler        *UserHandler
	authMiddleware     *SessionAuthMiddleware
	serviceManager     services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	tracker *dashboard.Tracker,
	cookie CookieConfig,
	logger utils.Logger,
) *HandlerManager {
	flash := serviceManager.Flash()
	authMiddleware := NewSessionAuthMiddleware(serviceManager.Session(), flash, cookie, logger)

	return &HandlerManager{
		authHandler:        NewAuthHandler(serviceManager.Session(), flash, authMiddleware, logger),
		dashboardHandler:   NewDashboardHandler(serviceManager, tracker, logger),
		jobHandler:         NewJobHandler(serviceManager.Job(), flash, logger),
		applicationHandler: NewApplicationHandler(serviceManager.Application(), flash, logger),
		userHandler:        NewUserHandler(serviceManager.User(), flash, logger),
		authMiddleware:     authMiddleware,
		serviceManager:     serviceManager,
	}
}

// SetupRoutes sets up all page and form routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", Health(hm.serviceManager))

	pages := router.Group("/")
	pages.Use(hm.authMiddleware.LoadSession())
	{
		pages.GET("", hm.authHandler.Welcome)

		// Anonymous only
		anonymous := pages.Group("")
		anonymous.Use(hm.authMiddleware.AnonymousOnly())
		{
			anonymous.GET("/signin", hm.authHandler.SignInPage)
			anonymous.POST("/signin", hm.authHandler.SignIn)
			anonymous.GET("/signup", hm.authHandler.SignUpPage)
			anonymous.POST("/signup", hm.authHandler.SignUp)
		}
		pages.POST("/logout", hm.authHandler.Logout)

		// Dashboards, one per user type
		pages.GET("/school/dashboard", hm.authMiddleware.RequireAuth(models.UserTypeSchool), hm.dashboardHandler.School)
		pages.GET("/company/dashboard", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.dashboardHandler.Company)
		pages.GET("/student/dashboard", hm.authMiddleware.RequireAuth(models.UserTypeStudent), hm.dashboardHandler.Student)

		jobs := pages.Group("/jobs")
		{
			jobs.GET("/public", hm.jobHandler.Public)
			jobs.GET("/:id", hm.jobHandler.Detail)

			// Company admins manage their postings
			jobs.GET("/new", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.jobHandler.NewJob)
			jobs.POST("", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.jobHandler.Create)
			jobs.GET("/:id/edit", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.jobHandler.Edit)
			jobs.POST("/:id", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.jobHandler.Update)
			jobs.POST("/:id/delete", hm.authMiddleware.RequireAuth(models.UserTypeCompany), hm.jobHandler.Delete)

			jobs.POST("/:id/apply", hm.authMiddleware.RequireAuth(models.UserTypeStudent), hm.jobHandler.Apply)
			jobs.POST("/:id/approve", hm.authMiddleware.RequireAuth(models.UserTypeSchool), hm.jobHandler.Approve)
		}

		applications := pages.Group("")
		applications.Use(hm.authMiddleware.RequireAuth(models.UserTypeUnknown))
		{
			applications.GET("/dashboard/applications/:jobId", hm.applicationHandler.ForJob)
			applications.GET("/dashboard/applications/:jobId/export", hm.applicationHandler.Export)
			applications.POST("/applications/:id/status", hm.applicationHandler.ChangeStatus)
		}

		pages.POST("/users", hm.authMiddleware.RequireAuth(models.UserTypeUnknown), hm.userHandler.CreateUser)
	}
}
