package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Courses       *CourseHandler
	Classes       *KindergartenClassHandler
	Holidays      *HolidayHandler
	Notifications *NotificationHandler
	Exports       *ExportHandler
	Enrollments   *EnrollmentHandler
	Teachers      *TeacherHandler
	Students      *StudentHandler
	Organization  *OrganizationHandler
}

// Register mounts the API on api. Reads are public; every mutating route runs
// behind guard, which is a pass-through when admin auth is disabled. me
// authenticates the /auth/me route.
func Register(api *gin.RouterGroup, h Handlers, guard []gin.HandlerFunc, me gin.HandlerFunc) {
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guard...), fn)
	}

	if h.Auth != nil {
		api.POST("/auth/login", h.Auth.Login)
		if me != nil {
			api.GET("/auth/me", me, h.Auth.Me)
		}
	}

	if h.Courses != nil {
		courses := api.Group("/courses")
		courses.GET("", h.Courses.List)
		courses.POST("", write(h.Courses.Create)...)
		courses.GET("/:id", h.Courses.Get)
		courses.PATCH("/:id", write(h.Courses.Update)...)
		courses.PUT("/:id", write(h.Courses.Update)...)
		courses.DELETE("/:id", write(h.Courses.Delete)...)
		courses.POST("/:id/cancel", write(h.Courses.Cancel)...)
		courses.PUT("/:id/pattern", write(h.Courses.UpdatePattern)...)
		courses.POST("/:id/apply-holidays", write(h.Courses.ApplyHolidays)...)
		courses.GET("/:id/sessions", h.Courses.Sessions)
		courses.POST("/:id/sessions", write(h.Courses.AddSession)...)
		courses.PATCH("/:id/sessions/:index", write(h.Courses.UpdateSession)...)
		courses.PUT("/:id/sessions/:index", write(h.Courses.UpdateSession)...)
		courses.DELETE("/:id/sessions/:index", write(h.Courses.DeleteSession)...)
		if h.Exports != nil {
			courses.GET("/:id/export", h.Exports.CourseSessions)
		}
	}

	if h.Classes != nil {
		classes := api.Group("/kindergarten-classes")
		classes.GET("", h.Classes.List)
		classes.POST("", write(h.Classes.Create)...)
		classes.GET("/:id", h.Classes.Get)
		classes.PATCH("/:id", write(h.Classes.Update)...)
		classes.PUT("/:id", write(h.Classes.Update)...)
		classes.DELETE("/:id", write(h.Classes.Delete)...)
		classes.PUT("/:id/pattern", write(h.Classes.UpdatePattern)...)
		classes.POST("/:id/apply-holidays", write(h.Classes.ApplyHolidays)...)
		classes.GET("/:id/sessions", h.Classes.Sessions)
		classes.POST("/:id/sessions", write(h.Classes.AddSession)...)
		classes.PATCH("/:id/sessions/:index", write(h.Classes.UpdateSession)...)
		classes.PUT("/:id/sessions/:index", write(h.Classes.UpdateSession)...)
		classes.DELETE("/:id/sessions/:index", write(h.Classes.DeleteSession)...)
		if h.Exports != nil {
			classes.GET("/:id/export", h.Exports.ClassSessions)
		}
	}

	if h.Exports != nil {
		api.GET("/exports/:token", h.Exports.Download)
	}

	if h.Holidays != nil {
		holidays := api.Group("/holidays")
		holidays.GET("", h.Holidays.List)
		holidays.POST("", write(h.Holidays.Create)...)
		holidays.POST("/apply", write(h.Holidays.Apply)...)
		holidays.GET("/:id", h.Holidays.Get)
		holidays.PUT("/:id", write(h.Holidays.Update)...)
		holidays.DELETE("/:id", write(h.Holidays.Delete)...)
	}

	if h.Notifications != nil {
		notifications := api.Group("/notifications")
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.GET("/ending-soon", h.Notifications.EndingSoon)
		notifications.GET("/ws", h.Notifications.Stream)
		notifications.POST("/read-all", h.Notifications.MarkAllRead)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
		notifications.DELETE("/:id", write(h.Notifications.Delete)...)
	}

	if h.Enrollments != nil {
		enrollments := api.Group("/enrollments")
		enrollments.GET("", h.Enrollments.List)
		enrollments.POST("", write(h.Enrollments.Create)...)
		enrollments.GET("/:id", h.Enrollments.Get)
		enrollments.PATCH("/:id", write(h.Enrollments.Update)...)
		enrollments.POST("/:id/attendance", write(h.Enrollments.MarkAttendance)...)
		enrollments.DELETE("/:id", write(h.Enrollments.Delete)...)
	}

	if h.Teachers != nil {
		teachers := api.Group("/teachers")
		teachers.GET("", h.Teachers.List)
		teachers.POST("", write(h.Teachers.Create)...)
		teachers.GET("/:id", h.Teachers.Get)
		teachers.PUT("/:id", write(h.Teachers.Update)...)
		teachers.DELETE("/:id", write(h.Teachers.Delete)...)
	}

	if h.Students != nil {
		students := api.Group("/students")
		students.GET("", h.Students.List)
		students.POST("", write(h.Students.Create)...)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", write(h.Students.Update)...)
		students.DELETE("/:id", write(h.Students.Delete)...)
	}

	if h.Organization != nil {
		api.GET("/regions", h.Organization.ListRegions)
		api.POST("/regions", write(h.Organization.CreateRegion)...)
		api.GET("/regions/:id", h.Organization.GetRegion)
		api.DELETE("/regions/:id", write(h.Organization.DeleteRegion)...)
		api.GET("/schools", h.Organization.ListSchools)
		api.POST("/schools", write(h.Organization.CreateSchool)...)
		api.GET("/schools/:id", h.Organization.GetSchool)
		api.DELETE("/schools/:id", write(h.Organization.DeleteSchool)...)
		api.GET("/branches", h.Organization.ListBranches)
		api.POST("/branches", write(h.Organization.CreateBranch)...)
		api.GET("/branches/:id", h.Organization.GetBranch)
		api.DELETE("/branches/:id", write(h.Organization.DeleteBranch)...)
	}
}
