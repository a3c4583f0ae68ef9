// Package v1 exposes the EMR services over JSON/HTTP under /api/v1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/service"
)

type Services struct {
	Patients      *service.PatientService
	Appointments  *service.AppointmentService
	Encounters    *service.EncounterService
	Consultations *service.ConsultationService
	Wards         *service.WardService
	Pharmacy      *service.PharmacyService
	Prescriptions *service.PrescriptionService
	Orders        *service.OrderService
	Triage        *service.TriageService
	Billing       *service.BillingService
}

type Handler struct {
	svc Services
	// maxUpload caps multipart attachment bodies.
	maxUpload int64
}

func NewHandler(svc Services, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

// RegisterRoutes mounts every resource on api. Callers attach authentication
// to api before calling.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	patients := api.Group("/patients")
	patients.POST("", h.CreatePatient)
	patients.GET("", h.ListPatients)
	patients.POST("/duplicates", h.FindDuplicates)
	patients.GET("/:id", h.GetPatient)
	patients.PATCH("/:id", h.UpdatePatient)
	patients.DELETE("/:id", h.DeactivatePatient)
	patients.POST("/:id/deceased", h.MarkDeceased)
	patients.GET("/:id/duplicates", h.DuplicatesOf)
	patients.POST("/:id/merge", h.MergePatient)
	patients.GET("/:id/prescriptions/active", h.ActivePrescriptions)
	patients.GET("/:id/pharmacy-sales", h.SalesByPatient)

	appts := api.Group("/appointments")
	appts.POST("", h.ScheduleAppointment)
	appts.GET("", h.ListAppointments)
	appts.GET("/:id", h.GetAppointment)
	appts.POST("/:id/reschedule", h.RescheduleAppointment)
	appts.POST("/:id/confirm", h.ConfirmAppointment)
	appts.POST("/:id/check-in", h.CheckInAppointment)
	appts.POST("/:id/complete", h.CompleteAppointment)
	appts.POST("/:id/cancel", h.CancelAppointment)
	appts.POST("/:id/no-show", h.NoShowAppointment)

	encs := api.Group("/encounters")
	encs.POST("", h.CreateEncounter)
	encs.GET("", h.ListEncounters)
	encs.GET("/:id", h.GetEncounter)
	encs.POST("/:id/start", h.StartEncounter)
	encs.POST("/:id/complete", h.CompleteEncounter)
	encs.POST("/:id/cancel", h.CancelEncounter)

	cons := api.Group("/consultations")
	cons.POST("", h.CreateConsultation)
	cons.GET("", h.ListConsultations)
	cons.GET("/:id", h.GetConsultation)
	cons.PATCH("/:id", h.UpdateConsultation)
	cons.POST("/:id/complete", h.CompleteConsultation)
	cons.POST("/:id/addenda", h.AddAddendum)
	cons.POST("/:id/attachments", h.AttachDocument)
	cons.GET("/:id/attachments/:attachmentId/url", h.AttachmentURL)

	api.GET("/wards", h.ListWards)
	api.POST("/wards", h.CreateWard)
	api.GET("/wards/occupancy", h.WardOccupancy)
	beds := api.Group("/beds")
	beds.POST("", h.CreateBed)
	beds.GET("", h.ListBeds)
	beds.POST("/:id/assign", h.AssignBed)
	beds.POST("/:id/vacate", h.VacateBed)
	beds.PUT("/:id/status", h.SetBedStatus)
	adm := api.Group("/admissions")
	adm.POST("", h.Admit)
	adm.GET("", h.ListAdmissions)
	adm.GET("/:id", h.GetAdmission)
	adm.POST("/:id/transfer", h.TransferBed)
	adm.POST("/:id/discharge", h.Discharge)
	adm.GET("/:id/transfers", h.ListTransfers)

	meds := api.Group("/medications")
	meds.POST("", h.CreateMedication)
	meds.GET("", h.ListMedications)
	meds.GET("/:id", h.GetMedication)
	meds.POST("/:id/restock", h.RestockMedication)
	meds.POST("/:id/adjust", h.AdjustStock)
	meds.GET("/:id/movements", h.StockMovements)
	api.POST("/pharmacy/sales", h.OverTheCounterSale)
	api.GET("/pharmacy/sales/:id", h.GetSale)

	rx := api.Group("/prescriptions")
	rx.POST("", h.CreatePrescription)
	rx.GET("", h.ListPrescriptions)
	rx.GET("/:id", h.GetPrescription)
	rx.POST("/:id/dispense", h.DispensePrescription)
	rx.POST("/:id/refill", h.RefillPrescription)
	rx.POST("/:id/cancel", h.CancelPrescription)
	rx.POST("/:id/exceptions", h.RequestException)
	rx.GET("/:id/exceptions", h.ListExceptions)
	api.POST("/dispense-exceptions/:id/review", h.ReviewException)

	orders := api.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/overdue", h.ListOverdueOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/start", h.StartOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
	orders.POST("/:id/items/:itemId/result", h.RecordResult)
	orders.POST("/:id/items/:itemId/cancel", h.CancelOrderItem)

	tri := api.Group("/triage")
	tri.POST("", h.Enqueue)
	tri.GET("/queues/:queue", h.ListWaiting)
	tri.GET("/queues/:queue/stats", h.QueueStats)
	tri.POST("/queues/:queue/next", h.CallNext)
	tri.GET("/:id", h.GetTriageEntry)
	tri.PUT("/:id/priority", h.Reprioritize)
	tri.POST("/:id/complete", h.CompleteTriage)
	tri.POST("/:id/left", h.MarkLeft)

	bills := api.Group("/bills")
	bills.POST("", h.CreateBill)
	bills.GET("", h.ListBills)
	bills.GET("/:id", h.GetBill)
	bills.POST("/:id/items", h.AddBillItem)
	bills.POST("/:id/discount", h.ApplyDiscount)
	bills.POST("/:id/payments", h.RecordPayment)
	bills.POST("/:id/void", h.VoidBill)
	claims := api.Group("/claims")
	claims.POST("", h.CreateClaim)
	claims.GET("", h.ListClaims)
	claims.GET("/:id", h.GetClaim)
	claims.POST("/:id/submit", h.SubmitClaim)
	claims.POST("/:id/approve", h.ApproveClaim)
	claims.POST("/:id/reject", h.RejectClaim)
	claims.POST("/:id/paid", h.MarkClaimPaid)
}
