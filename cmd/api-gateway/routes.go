package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/competition-approval-api/internal/middleware"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/config"
)

func registerRoutes(r *gin.Engine, cfg *config.Config, app *application) {
	h := app.handlers

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(app.auth))
	admins := middleware.Admins()
	schoolAdmins := middleware.SchoolAdmins()
	superAdmin := middleware.RequireRoles(models.RoleSuperAdmin)
	teachers := middleware.RequireRoles(models.RoleTeacher)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(app.users, app.logger, action, resource)
	}
	competitionAudit := audit(models.AuditActionCompetition, "competition")
	departmentAudit := audit(models.AuditActionDepartment, "department")

	secured.GET("/auth/me", h.auth.Me)
	secured.POST("/auth/change-password", h.auth.ChangePassword)

	me := secured.Group("/me")
	me.PUT("/profile", h.profile.Update)
	me.GET("/profile/logs", h.profile.EditLogs)
	me.GET("/performance", h.stats.MyPerformance)

	competitions := secured.Group("/competitions")
	competitions.GET("", h.competitions.List)
	competitions.GET("/:id", h.competitions.Get)
	competitions.GET("/:id/logs", admins, h.competitions.EditLogs)
	competitions.POST("", admins, competitionAudit, h.competitions.Create)
	competitions.PUT("/:id", admins, competitionAudit, h.competitions.Update)
	competitions.DELETE("/:id", admins, competitionAudit, h.competitions.Delete)

	applications := secured.Group("/applications")
	applications.GET("/mine", teachers, h.applications.ListMine)
	applications.GET("/pending", admins, h.applications.Pending)
	applications.GET("", admins, h.applications.List)
	applications.POST("", teachers, h.applications.Create)
	applications.GET("/:id", h.applications.Get)
	applications.GET("/:id/history", h.applications.History)
	applications.PUT("/:id", teachers, h.applications.Update)
	applications.DELETE("/:id", teachers, h.applications.Delete)
	applications.POST("/:id/submit", teachers, h.applications.Submit)
	applications.POST("/:id/decision", admins, h.applications.Decide)

	awards := secured.Group("/awards")
	awards.GET("/latest", h.awards.Latest)
	awards.GET("/mine", teachers, h.awards.ListMine)
	awards.GET("/pending", admins, h.awards.Pending)
	awards.GET("", admins, h.awards.List)
	awards.POST("", teachers, h.awards.Create)
	awards.POST("/certificates", admins, h.certificates.Batch)
	awards.GET("/:id", h.awards.Get)
	awards.GET("/:id/history", h.awards.History)
	awards.GET("/:id/certificate", h.certificates.Certificate)
	awards.POST("/:id/decision", admins, h.awards.Decide)

	rules := secured.Group("/rules")
	rules.GET("", h.rules.Tables)
	rules.PUT("/performance", superAdmin, audit(models.AuditActionRulesUpdate, "performance_rules"), h.rules.UpsertPerformance)
	rules.PUT("/reward", superAdmin, audit(models.AuditActionRulesUpdate, "reward_rules"), h.rules.UpsertReward)

	stats := secured.Group("/stats")
	stats.GET("/ranking", admins, h.stats.DepartmentRanking)
	stats.GET("/overview", schoolAdmins, h.stats.SchoolOverview)
	stats.GET("/competitions", h.stats.CompetitionStats)

	rewards := secured.Group("/rewards", schoolAdmins)
	rewards.GET("", h.stats.AnnualRewards)
	rewards.GET("/export", h.stats.ExportRewards)

	users := secured.Group("/users")
	users.GET("", admins, h.users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleSchoolAdmin), string(models.RoleDepartmentAdmin), middleware.Self), h.users.Get)
	users.POST("", superAdmin, h.users.Create)
	users.PUT("/:id", superAdmin, h.users.Update)

	departments := secured.Group("/departments")
	departments.GET("", h.departments.List)
	departments.GET("/:id", h.departments.Get)
	departments.POST("", superAdmin, departmentAudit, h.departments.Create)
	departments.PUT("/:id", superAdmin, departmentAudit, h.departments.Update)
	departments.DELETE("/:id", superAdmin, departmentAudit, h.departments.Delete)

	students := secured.Group("/students")
	students.GET("", h.students.List)
	students.GET("/:id", h.students.Get)
	students.POST("", admins, h.students.Create)
}
