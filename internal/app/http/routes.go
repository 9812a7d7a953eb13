package routes

import (
	"net/http"

	"enrollment-gateway/config"
	adminapi "enrollment-gateway/internal/api/admin"
	enrollmentsapi "enrollment-gateway/internal/api/enrollments"
	"enrollment-gateway/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.Engine,
	cfg config.Config,
	enrollments *enrollmentsapi.Handler,
	admin *adminapi.Handler,
	metrics http.Handler,
	refresh middleware.RefreshFunc,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics))

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.UpstreamSession(refresh))
	auth.GET("/courses/:id/offer", enrollments.GetOffer)
	auth.POST("/courses/:id/enroll", enrollments.Enroll)
	auth.GET("/enrollments", enrollments.ListEnrollments)

	// Admin routes
	adminGroup := r.Group("/admin")
	adminGroup.Use(
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.RequireRole("admin"),
		middleware.UpstreamSession(refresh),
		middleware.SanitizeAndCleanInputMiddleware(),
	)
	adminGroup.GET("/courses", admin.ListCourses)
	adminGroup.POST("/enrollments/:id/approve", admin.ApproveEnrollment)
	adminGroup.POST("/enrollments/:id/reject", admin.RejectEnrollment)
	adminGroup.POST("/sync-courses", admin.SyncCourses)
}
