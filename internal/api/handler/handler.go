package handler

import "github.com/Tahatra21/solarhub-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Role       *RoleHandler
	Position   *PositionHandler
	Category   *MasterDataHandler
	Segment    *MasterDataHandler
	Stage      *MasterDataHandler
	Interval   *IntervalHandler
	Product    *ProductHandler
	DevHistory *DevHistoryHandler
	Dashboard  *DashboardHandler
	Lifecycle  *LifecycleHandler
	License    *LicenseHandler
	CRJR       *CRJRHandler
	RunProgram *RunProgramHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Role:       NewRoleHandler(svc.Role),
		Position:   NewPositionHandler(svc.Position),
		Category:   NewMasterDataHandler(svc.Category, "类别"),
		Segment:    NewMasterDataHandler(svc.Segment, "细分市场"),
		Stage:      NewMasterDataHandler(svc.Stage, "阶段"),
		Interval:   NewIntervalHandler(svc.Interval),
		Product:    NewProductHandler(svc.Product),
		DevHistory: NewDevHistoryHandler(svc.DevHistory),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
		Lifecycle:  NewLifecycleHandler(svc.Lifecycle),
		License:    NewLicenseHandler(svc.License),
		CRJR:       NewCRJRHandler(svc.CRJR),
		RunProgram: NewRunProgramHandler(svc.RunProgram),
		Export:     NewExportHandler(svc.Export),
	}
}
