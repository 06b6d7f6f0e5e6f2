package handler

import (
	"sync"
	"time"

	"github.com/habitgrid/internal/service"
	"github.com/habitgrid/internal/viewport"
	"go.uber.org/zap"
)

// Deps 汇总 API 依赖的服务实例，由 main 构造一次后传入。
type Deps struct {
	Repository *service.Repository
	Settings   *service.SettingService
	Notes      *service.NoteDebouncer
	Logger     *zap.Logger
	// Ping 检查存储是否可用，可为空
	Ping func() error
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	repo     *service.Repository
	exporter *service.Exporter
	settings *service.SettingService
	grid     *service.GridService
	notes    *service.NoteDebouncer
	logger   *zap.Logger
	ping     func() error

	viewMu   sync.Mutex
	view     *viewport.Viewport
	gestures *viewport.GestureTracker
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notes := deps.Notes
	if notes == nil {
		notes = service.NewNoteDebouncer(deps.Repository.SaveNote, service.DefaultNoteDebounce, logger)
	}

	return &API{
		repo:     deps.Repository,
		exporter: service.NewExporter(deps.Repository),
		settings: deps.Settings,
		grid:     service.NewGridService(deps.Repository, deps.Settings),
		notes:    notes,
		logger:   logger,
		ping:     deps.Ping,
		view:     viewport.New(viewport.DefaultMinScale, viewport.DefaultMaxScale),
		gestures: viewport.NewGestureTracker(),
	}
}

func (a *API) today() time.Time {
	return a.repo.Today()
}
