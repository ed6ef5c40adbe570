package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	patientHandler    *PatientHandler
	incidentHandler   *IncidentHandler
	zoneHandler       *ZoneHandler
	trainingHandler   *TrainingHandler
	careHandler       *CareHandler
	predictionHandler *PredictionHandler
	assistantHandler  *AssistantHandler
	dashboardHandler  *DashboardHandler
	ticketHandler     *TicketHandler
	userHandler       *UserHandler
	authMiddleware    *SessionAuthMiddleware
	sessionConfig     config.SessionConfig
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	sessionConfig config.SessionConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewSessionAuthMiddleware(userRepo, logger)

	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), validator, logger),
		patientHandler:    NewPatientHandler(serviceManager.Patient(), validator, logger),
		incidentHandler:   NewIncidentHandler(serviceManager.Incident(), validator, logger),
		zoneHandler:       NewZoneHandler(serviceManager.Zone(), validator, logger),
		trainingHandler:   NewTrainingHandler(serviceManager.Training(), validator, logger),
		careHandler:       NewCareHandler(serviceManager.Care(), validator, logger),
		predictionHandler: NewPredictionHandler(serviceManager.Prediction(), validator, logger),
		assistantHandler:  NewAssistantHandler(serviceManager.Assistant(), validator, logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), validator, logger),
		ticketHandler:     NewTicketHandler(serviceManager.Ticket(), validator, logger),
		userHandler:       NewUserHandler(serviceManager.User(), validator, logger),
		authMiddleware:    authMiddleware,
		sessionConfig:     sessionConfig,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(SessionStore(hm.sessionConfig))

	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Public auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", hm.authHandler.Signup)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/logout", hm.authHandler.Logout)
		}

		// Everything below requires a session
		authed := v1.Group("")
		authed.Use(hm.authMiddleware.AuthMiddleware())
		{
			authed.GET("/auth/me", hm.authHandler.GetProfile)
			authed.POST("/auth/change-password", hm.authHandler.ChangePassword)

			// Patient routes
			patients := authed.Group("/patients")
			{
				patients.POST("", hm.patientHandler.CreatePatient)
				patients.GET("", hm.patientHandler.ListPatients)
				patients.GET("/:id", hm.patientHandler.GetPatient)
				patients.GET("/:id/details", hm.patientHandler.GetPatientWithDetails)
				patients.GET("/:id/stats", hm.patientHandler.GetPatientStats)
				patients.PUT("/:id", hm.patientHandler.UpdatePatient)
				patients.DELETE("/:id", hm.patientHandler.DeletePatient)
			}

			// Incident routes
			incidents := authed.Group("/incidents")
			{
				incidents.POST("", hm.incidentHandler.CreateIncident)
				incidents.GET("", hm.incidentHandler.ListIncidents)
				incidents.GET("/:id", hm.incidentHandler.GetIncident)
				incidents.PUT("/:id/resolve", hm.incidentHandler.ResolveIncident)
				incidents.DELETE("/:id", hm.incidentHandler.DeleteIncident)
			}

			// Seizure session routes
			sessions := authed.Group("/sessions")
			{
				sessions.POST("/start", hm.incidentHandler.StartSession)
				sessions.POST("/:id/end", hm.incidentHandler.EndSession)
				sessions.GET("/active/:patient_id", hm.incidentHandler.GetActiveSession)
				sessions.GET("/patient/:patient_id", hm.incidentHandler.GetSessions)
			}

			// Safety zone routes, approval restricted to admins
			zones := authed.Group("/zones")
			{
				zones.POST("", hm.zoneHandler.CreateZone)
				zones.POST("/check", hm.zoneHandler.CheckLocation)
				zones.GET("/pending", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.zoneHandler.ListPendingZones)
				zones.GET("/patient/:patient_id", hm.zoneHandler.GetZonesByPatient)
				zones.GET("/:id", hm.zoneHandler.GetZone)
				zones.PUT("/:id", hm.zoneHandler.UpdateZone)
				zones.PUT("/:id/approve", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.zoneHandler.ApproveZone)
				zones.PUT("/:id/reject", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.zoneHandler.RejectZone)
				zones.DELETE("/:id", hm.zoneHandler.DeleteZone)
			}

			// Training routes, module management restricted to admins
			training := authed.Group("/training")
			{
				training.POST("/modules", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.trainingHandler.CreateModule)
				training.GET("/modules", hm.trainingHandler.ListModules)
				training.GET("/modules/:id", hm.trainingHandler.GetModule)
				training.PUT("/modules/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.trainingHandler.UpdateModule)
				training.DELETE("/modules/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.trainingHandler.DeleteModule)
				training.PUT("/modules/:id/progress", hm.trainingHandler.UpdateProgress)
				training.POST("/modules/:id/quiz", hm.trainingHandler.SubmitQuiz)
				training.GET("/progress", hm.trainingHandler.GetUserProgress)
			}

			// Medication routes
			medications := authed.Group("/medications")
			{
				medications.POST("", hm.careHandler.CreateMedication)
				medications.GET("/patient/:patient_id", hm.careHandler.GetMedications)
				medications.GET("/patient/:patient_id/adherence", hm.careHandler.GetAdherence)
				medications.PUT("/:id", hm.careHandler.UpdateMedication)
				medications.DELETE("/:id", hm.careHandler.DeleteMedication)
				medications.POST("/:id/log", hm.careHandler.LogMedication)
			}

			// Care plan routes
			carePlans := authed.Group("/care-plans")
			{
				carePlans.POST("", hm.careHandler.CreateCarePlan)
				carePlans.GET("/patient/:patient_id", hm.careHandler.GetCarePlans)
				carePlans.PUT("/:id/status", hm.careHandler.UpdateCarePlanStatus)
				carePlans.DELETE("/:id", hm.careHandler.DeleteCarePlan)
				carePlans.POST("/:id/tasks", hm.careHandler.AddTask)
				carePlans.PUT("/tasks/:task_id/complete", hm.careHandler.CompleteTask)
				carePlans.DELETE("/tasks/:task_id", hm.careHandler.DeleteTask)
			}

			// Emergency contact and alert routes
			emergency := authed.Group("/emergency")
			{
				emergency.POST("/contacts", hm.careHandler.CreateContact)
				emergency.GET("/contacts/patient/:patient_id", hm.careHandler.GetContacts)
				emergency.PUT("/contacts/:id", hm.careHandler.UpdateContact)
				emergency.DELETE("/contacts/:id", hm.careHandler.DeleteContact)

				emergency.POST("/alerts", hm.careHandler.RaiseAlert)
				emergency.GET("/alerts", hm.careHandler.ListAlerts)
				emergency.PUT("/alerts/:id/acknowledge", hm.careHandler.AcknowledgeAlert)
				emergency.PUT("/alerts/:id/resolve", hm.careHandler.ResolveAlert)
			}

			// Risk prediction routes, batch run restricted to admins
			predictions := authed.Group("/predictions")
			{
				predictions.POST("/run", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.predictionHandler.RunAnalysis)
				predictions.GET("/jobs", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.predictionHandler.ListJobs)
				predictions.GET("/jobs/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.predictionHandler.GetJob)
				predictions.POST("/patient/:patient_id", hm.predictionHandler.PredictPatient)
				predictions.GET("/patient/:patient_id", hm.predictionHandler.GetLatestPrediction)
				predictions.GET("/patient/:patient_id/history", hm.predictionHandler.GetPredictionHistory)
			}

			// Assistant routes
			assistant := authed.Group("/assistant")
			{
				assistant.POST("/chat", hm.assistantHandler.Chat)
				assistant.GET("/status", hm.assistantHandler.Status)
			}

			// Dashboard routes, overview and export restricted to admins
			dashboard := authed.Group("/dashboard")
			{
				dashboard.GET("/overview", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.dashboardHandler.GetOverview)
				dashboard.GET("/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.dashboardHandler.ExportIncidents)
				dashboard.GET("/me", hm.dashboardHandler.GetCaregiverStats)
			}

			// Support ticket routes
			tickets := authed.Group("/tickets")
			{
				tickets.POST("", hm.ticketHandler.CreateTicket)
				tickets.GET("", hm.ticketHandler.ListTickets)
				tickets.GET("/:id", hm.ticketHandler.GetTicket)
				tickets.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.ticketHandler.UpdateTicket)
				tickets.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.ticketHandler.DeleteTicket)
			}

			// Account management routes - Admins only
			admin := authed.Group("/admin")
			admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
			{
				admin.GET("/users", hm.userHandler.ListUsers)
				admin.POST("/users", hm.userHandler.CreateUser)
				admin.GET("/users/:id", hm.userHandler.GetUser)
				admin.PUT("/users/:id", hm.userHandler.UpdateUser)
				admin.PUT("/users/:id/deactivate", hm.userHandler.DeactivateUser)
				admin.DELETE("/users/:id", hm.userHandler.DeleteUser)
				admin.GET("/training/stats", hm.trainingHandler.GetCompletionStats)
			}
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "safestep-service",
	})
}
